// Copyright 2016 Aleksandr Demakin. All rights reserved.

package testutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWaitForFunc(t *testing.T) {
	a := assert.New(t)
	a.True(WaitForFunc(func() {}, time.Second))
	block := make(chan struct{})
	defer close(block)
	a.False(WaitForFunc(func() { <-block }, time.Millisecond*20))
}

func TestWaitForAppResultChan(t *testing.T) {
	a := assert.New(t)
	ch := make(chan TestAppResult, 1)
	_, ok := WaitForAppResultChan(ch, time.Millisecond*20)
	a.False(ok)
	ch <- TestAppResult{Output: "done"}
	result, ok := WaitForAppResultChan(ch, time.Second)
	a.True(ok)
	a.Equal("done", result.Output)
}
