// Copyright (c) 2025 Stefano Scafiti
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.
package cmd

import (
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fatxforensics/fatxtk/internal/fatx"
	"github.com/fatxforensics/fatxtk/internal/fuse"
)

func DefineMountCommand() *cobra.Command {
	var (
		partition  string
		mountpoint string
	)

	cmd := &cobra.Command{
		Use:   "mount <image>",
		Short: "Mount a partition's live directory tree read-only over FUSE",
		Long: `The 'mount' command builds the live directory tree of a partition and
exposes it as a read-only FUSE filesystem at the given mountpoint, reading
file contents on demand by walking each dirent's FAT chain. Linux only.`,
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, d, err := openDrive(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			p, err := findPartition(d, partition)
			if err != nil {
				return err
			}

			v, err := openVolume(f, d, p)
			if err != nil {
				return err
			}

			forest := fatx.NewForest()
			if err := v.BuildLiveTree(forest); err != nil {
				return err
			}

			if mountpoint == "" {
				mountpoint = defaultMountpoint(args[0])
			}

			log.Info("mounting partition", "partition", p.Name, "mountpoint", mountpoint)
			return fuse.Mount(mountpoint, v, forest)
		},
	}

	cmd.Flags().StringVar(&partition, "partition", "Partition1", "partition to mount")
	cmd.Flags().StringVarP(&mountpoint, "mountpoint", "m", "", "directory to mount at; defaults to <image-base>_mnt")
	return cmd
}

func defaultMountpoint(imagePath string) string {
	base := filepath.Base(imagePath)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return base + "_mnt"
}
