// Copyright 2015 Aleksandr Demakin. All rights reserved.

package shm

import (
	"bufio"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

const (
	defaultShmPath   = "/dev/shm/"
	cShmfsSuperMagic = 0x01021994
	cRamfsMagic      = 0x858458f6
)

var (
	shmPathOnce sync.Once
	shmPath     string
)

func shmDirectory() (string, error) {
	shmPathOnce.Do(locateShmFs)
	if len(shmPath) == 0 {
		return shmPath, errors.New("error locating the shared memory path")
	}
	return shmPath, nil
}

func locateShmFs() {
	if checkShmPath(defaultShmPath) {
		shmPath = defaultShmPath
	} else {
		shmPath = shmFsFromMounts()
	}
}

func checkShmPath(path string) bool {
	if len(path) == 0 {
		return false
	}
	var statfs unix.Statfs_t
	if err := unix.Statfs(path, &statfs); err != nil {
		return false
	}
	// statfs.Type has different types on different platforms.
	return isShmFs(int64(statfs.Type))
}

func isShmFs(fsType int64) bool {
	return fsType == cShmfsSuperMagic || fsType == cRamfsMagic
}

func shmFsFromMounts() string {
	fsFile, err := os.Open("/proc/mounts")
	if err != nil {
		if fsFile, err = os.Open("/etc/fstab"); err != nil {
			return ""
		}
	}
	defer fsFile.Close()
	return shmFsFromReader(fsFile)
}

// shmFsFromReader looks for a tmpfs mount point in fstab-formatted input.
func shmFsFromReader(r io.Reader) string {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		dir, fsType, ok := scanMountRecord(scanner.Text())
		if !ok || (fsType != "tmpfs" && fsType != "shm") || !checkShmPath(dir) {
			continue
		}
		if !strings.HasSuffix(dir, "/") {
			dir += "/"
		}
		return dir
	}
	return ""
}

// scanMountRecord parses 'fsname dir type opts freq passno' line.
func scanMountRecord(record string) (dir, fsType string, ok bool) {
	fields := strings.Fields(record)
	if len(fields) < 3 || strings.HasPrefix(fields[0], "#") {
		return "", "", false
	}
	return fields[1], fields[2], true
}
