// Copyright 2016 Aleksandr Demakin. All rights reserved.

// +build freebsd linux

package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	evcount "github.com/nxgtw/go-evcount"
	"github.com/nxgtw/go-evcount/shm"
)

var (
	timeout = flag.Int("timeout", -1, "timeout for wait, in ms.")
	width   = flag.Int("width", 32, "counter width, 32 or 64.")
	sp      = flag.Bool("sp", false, "use single producer mode.")
	logger  = log.New(os.Stderr, "[evcount] ", log.Lmicroseconds)
)

const usage = `  test program for shared event counts.
available commands:
  wait name old_value
  inc name
  add name delta
  read name
`

// counter hides the width of a shared counter.
type counter interface {
	add(mode *evcount.Mode, delta uint64) uint64
	value() uint64
	wait(mode *evcount.Mode, old uint64, timeout time.Duration) (int, error)
	Close() error
}

type counter32 struct{ *shm.EventCount32 }

func (c counter32) add(mode *evcount.Mode, delta uint64) uint64 {
	return uint64(c.Add(mode, uint32(delta)))
}

func (c counter32) value() uint64 {
	return uint64(c.Value())
}

func (c counter32) wait(mode *evcount.Mode, old uint64, timeout time.Duration) (int, error) {
	return c.WaitTimeout(mode, uint32(old), timeout)
}

type counter64 struct{ *shm.EventCount64 }

func (c counter64) add(mode *evcount.Mode, delta uint64) uint64 {
	return c.Add(mode, delta)
}

func (c counter64) value() uint64 {
	return c.Value()
}

func (c counter64) wait(mode *evcount.Mode, old uint64, timeout time.Duration) (int, error) {
	return c.WaitTimeout(mode, old, timeout)
}

func openCounter(name string) (counter, error) {
	switch *width {
	case 32:
		ec, err := shm.NewEventCount32(name, 0, 0666, 0)
		if err != nil {
			return nil, err
		}
		return counter32{ec}, nil
	case 64:
		ec, err := shm.NewEventCount64(name, 0, 0666, 0)
		if err != nil {
			return nil, err
		}
		return counter64{ec}, nil
	default:
		return nil, fmt.Errorf("invalid width %d", *width)
	}
}

func numArg(idx int) (uint64, error) {
	return strconv.ParseUint(flag.Arg(idx), 10, 64)
}

func wait(c counter, mode *evcount.Mode) error {
	if flag.NArg() != 3 {
		return fmt.Errorf("wait: must provide name and old value only")
	}
	old, err := numArg(2)
	if err != nil {
		return err
	}
	to := time.Duration(-1)
	if *timeout >= 0 {
		to = time.Duration(*timeout) * time.Millisecond
	}
	result, err := c.wait(mode, old, to)
	if err != nil {
		return err
	}
	switch result {
	case evcount.Changed:
		logger.Printf("value changed to %d", c.value())
		return nil
	case evcount.TimedOut:
		return fmt.Errorf("timeout exceeded")
	default:
		return fmt.Errorf("unexpected wait result %d", result)
	}
}

func add(c counter, mode *evcount.Mode, delta uint64) error {
	old := c.add(mode, delta)
	logger.Printf("added %d, old value %d", delta, old)
	return nil
}

func runCommand() error {
	command := flag.Arg(0)
	if flag.NArg() < 2 {
		return fmt.Errorf("%s: must provide counter name", command)
	}
	c, err := openCounter(flag.Arg(1))
	if err != nil {
		return err
	}
	defer c.Close()
	mode := shm.NewMode(*sp)
	switch command {
	case "wait":
		return wait(c, mode)
	case "inc":
		return add(c, mode, 1)
	case "add":
		if flag.NArg() != 3 {
			return fmt.Errorf("add: must provide name and delta only")
		}
		delta, err := numArg(2)
		if err != nil {
			return err
		}
		return add(c, mode, delta)
	case "read":
		fmt.Println(c.value())
		return nil
	default:
		return fmt.Errorf("unknown command")
	}
}

func main() {
	flag.Parse()
	if flag.NArg() == 0 {
		fmt.Print(usage)
		flag.Usage()
		os.Exit(1)
	}
	if err := runCommand(); err != nil {
		logger.Printf("%v", err)
		os.Exit(1)
	}
}
