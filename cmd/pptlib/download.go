package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/jongik-sv/pptlib/pkg/download"
	"github.com/jongik-sv/pptlib/pkg/presenter"
)

type DownloadConfig struct {
	File     string
	Dir      string
	Timeout  time.Duration
	Attempts uint
}

func NewDownloadConfig() *DownloadConfig {
	return &DownloadConfig{
		File:     "",
		Dir:      "",
		Timeout:  download.DefaultTimeout,
		Attempts: download.DefaultAttempts,
	}
}

var downloadCmd = &cobra.Command{
	Use:   "download [url...]",
	Short: "Download reference slide images",
	Long: `Download reference slide images as slide_NN.png or slide_NN.jpg.

URLs are taken from the arguments and from --file (one per line, blank lines
and lines starting with # are ignored). Images go to <assets>/images unless
--dir is given. A failing URL does not stop the others.

Examples:
  pptlib download https://example.com/a.png https://example.com/b.jpg
  pptlib download --file urls.txt --dir ./reference`,
	Run: func(cmd *cobra.Command, args []string) {
		config := getDownloadConfigFromFlags(cmd)
		if config.Dir == "" {
			config.Dir = filepath.Join(projectLayout().Assets, "images")
		}

		urls := args
		if config.File != "" {
			f, err := os.Open(config.File)
			if err != nil {
				presenter.Error(err, "Failed to open URL list")
				os.Exit(1)
			}
			fromFile, err := readURLList(f)
			f.Close()
			if err != nil {
				presenter.Error(err, "Failed to read URL list")
				os.Exit(1)
			}
			urls = append(urls, fromFile...)
		}
		if len(urls) == 0 {
			presenter.Error(errors.New("no URLs given"), "Nothing to download")
			os.Exit(1)
		}

		report, err := runDownload(cmd.Context(), urls, config)
		for _, res := range report.Results {
			if res.Err == nil {
				presenter.Success(fmt.Sprintf("%s -> %s", res.URL, res.Path))
			}
		}
		presenter.Info(fmt.Sprintf("Downloaded %d/%d images into %s", report.Succeeded(), len(urls), config.Dir))
		if err != nil {
			presenter.Error(err, "Some downloads failed")
			os.Exit(1)
		}
	},
}

func init() {
	defaults := NewDownloadConfig()
	downloadCmd.Flags().String("file", defaults.File, "File with one URL per line")
	downloadCmd.Flags().String("dir", defaults.Dir, "Target directory (defaults to <assets>/images)")
	downloadCmd.Flags().Duration("timeout", defaults.Timeout, "Timeout of each request")
	downloadCmd.Flags().Uint("attempts", defaults.Attempts, "Attempts per URL")
}

func getDownloadConfigFromFlags(cmd *cobra.Command) *DownloadConfig {
	config := NewDownloadConfig()
	if file, err := cmd.Flags().GetString("file"); err == nil {
		config.File = file
	}
	if dir, err := cmd.Flags().GetString("dir"); err == nil {
		config.Dir = dir
	}
	if timeout, err := cmd.Flags().GetDuration("timeout"); err == nil {
		config.Timeout = timeout
	}
	if attempts, err := cmd.Flags().GetUint("attempts"); err == nil {
		config.Attempts = attempts
	}
	return config
}

// readURLList returns the non-empty, non-comment lines of r.
func readURLList(r io.Reader) ([]string, error) {
	var urls []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to scan URL list")
	}
	return urls, nil
}

func runDownload(ctx context.Context, urls []string, config *DownloadConfig) (download.Report, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	d, err := download.New(config.Dir,
		download.WithTimeout(config.Timeout),
		download.WithAttempts(config.Attempts),
	)
	if err != nil {
		return download.Report{}, err
	}
	return d.Download(ctx, urls)
}
