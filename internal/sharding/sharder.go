package sharding

import (
	"archive/tar"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// DefaultShardSize is the number of frames stored per archive
const DefaultShardSize = 500

// ArchiveFrames bundles frame files into tar shards named
// <name>_00000.tar, <name>_00001.tar, ... inside outputDir and returns the
// shard paths. Each shard holds at most shardSize frames.
func ArchiveFrames(frames []string, outputDir, name string, shardSize int) ([]string, error) {
	if len(frames) == 0 {
		return nil, nil
	}
	if shardSize <= 0 {
		shardSize = DefaultShardSize
	}
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("error creating archive directory: %v", err)
	}

	numShards := (len(frames) + shardSize - 1) / shardSize
	shards := make([]string, 0, numShards)
	for i := 0; i < numShards; i++ {
		start := i * shardSize
		end := (i + 1) * shardSize
		if end > len(frames) {
			end = len(frames)
		}

		shardPath := filepath.Join(outputDir, fmt.Sprintf("%s_%05d.tar", name, i))
		if err := createShard(shardPath, frames[start:end]); err != nil {
			return shards, fmt.Errorf("error creating shard %d: %v", i, err)
		}
		shards = append(shards, shardPath)
	}

	return shards, nil
}

// createShard creates a tar file containing the given frames
func createShard(shardPath string, frames []string) error {
	tarFile, err := os.Create(shardPath)
	if err != nil {
		return fmt.Errorf("error creating tar file: %v", err)
	}
	defer tarFile.Close()

	tw := tar.NewWriter(tarFile)
	for _, frame := range frames {
		if err := addFile(tw, frame); err != nil {
			return err
		}
	}

	if err := tw.Close(); err != nil {
		return fmt.Errorf("error finishing tar: %v", err)
	}
	return tarFile.Close()
}

func addFile(tw *tar.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("error reading frame %s: %v", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("error reading frame %s: %v", path, err)
	}

	header := &tar.Header{
		Name:    filepath.Base(path),
		Mode:    0644,
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}
	if err := tw.WriteHeader(header); err != nil {
		return fmt.Errorf("error writing tar header: %v", err)
	}
	if _, err := io.Copy(tw, f); err != nil {
		return fmt.Errorf("error writing tar data: %v", err)
	}
	return nil
}
