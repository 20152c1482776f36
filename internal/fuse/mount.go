//go:build !linux
// +build !linux

package fuse

import (
	"fmt"

	"github.com/fatxforensics/fatxtk/internal/fatx"
)

func Mount(mountpoint string, v *fatx.Volume, forest *fatx.Forest) error {
	return fmt.Errorf("FUSE mount is only supported on Linux")
}
