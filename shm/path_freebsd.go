// Copyright 2015 Aleksandr Demakin. All rights reserved.

package shm

import (
	"os"
	"strings"
)

// freebsd has no shm filesystem by default, so objects are regular files,
// which are shared via MAP_SHARED mappings.
func shmDirectory() (string, error) {
	dir := os.TempDir()
	if !strings.HasSuffix(dir, "/") {
		dir += "/"
	}
	return dir, nil
}
