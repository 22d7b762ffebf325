// pageinspect prints the per-page xxhash64 checksum of a heap file.
// The digests make it cheap to diff two copies of the same file (say, a
// backup against the live file) and spot which pages diverged.
//
// Usage:
//
//	pageinspect [-config nozomidb.ini] [-file path/to/heap.db]
package main

import (
	"flag"
	"fmt"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/nozomidb/nozomidb/config"
	"github.com/nozomidb/nozomidb/storage/disk"
	"github.com/nozomidb/nozomidb/storage/page"
)

func main() {
	var (
		configPath = flag.String("config", "", "path to the nozomidb ini config")
		filePath   = flag.String("file", "", "heap file to inspect (default <data_dir>/heap.db)")
	)
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		c, err := config.Load(*configPath)
		if err != nil {
			logrus.Fatalf("load config: %v", err)
		}
		cfg = c
	}
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		logrus.Fatalf("parse log level: %v", err)
	}
	logrus.SetLevel(level)

	path := *filePath
	if path == "" {
		path = filepath.Join(cfg.DataDir, "heap.db")
	}

	dm, err := disk.NewManager(path)
	if err != nil {
		logrus.Fatalf("open heap file: %v", err)
	}

	p := page.NewPagePtr()
	npages := dm.NPages()
	for pageID := page.FirstPageID; pageID < npages; pageID++ {
		if err := dm.ReadPageData(pageID, p); err != nil {
			logrus.Fatalf("read page %d: %v", pageID, err)
		}
		fmt.Printf("page %8d  xxhash64=%016x\n", pageID, page.Checksum(p))
	}
	fmt.Printf("%s: %d pages, %d bytes\n", path, npages, page.CalculateFileOffset(npages))
}
