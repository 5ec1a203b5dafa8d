// Package locate finds the home-sales dataset on disk or downloads it.
//
// The search order is fixed: an explicit path in the HOME_SALES_CSV
// environment variable wins, then a set of conventional local paths is
// probed, and only if none exist is the dataset downloaded from the public
// source URL into a staging directory.
package locate

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

// EnvVar names the environment variable that overrides dataset discovery
const EnvVar = "HOME_SALES_CSV"

// RemoteURL is the public source of the dataset, used when no local copy
// can be found.
const RemoteURL = "https://2u-data-curriculum-team.s3.amazonaws.com/dataviz-classroom/v1.2/22-big-data/home_sales_revised.csv"

// localCandidates are probed in order relative to the working directory
var localCandidates = []string{
	"home_sales_revised.csv",
	filepath.Join("data", "home_sales_revised.csv"),
	filepath.Join("..", "home_sales_revised.csv"),
	filepath.Join(".", "home_sales_revised.csv"),
}

// downloadTimeout bounds the dataset download
const downloadTimeout = 60 * time.Second

// Fetcher downloads a URL and returns the local path it was staged to
type Fetcher func(url string) (string, error)

// Find locates the dataset, writing progress to w. It returns the path of
// a readable CSV file, or an error if no source could be found. Each failed
// strategy is reported on w and falls through to the next; the error
// returned names every option that was exhausted.
func Find(w io.Writer) (string, error) {
	return FindWith(w, FetchRemote)
}

// FindWith is Find with a pluggable download function
func FindWith(w io.Writer, fetch Fetcher) (string, error) {
	if path := os.Getenv(EnvVar); path != "" {
		if fileExists(path) {
			fmt.Fprintf(w, "Using dataset from %s: %s\n", EnvVar, path)
			return path, nil
		}
		fmt.Fprintf(w, "%s points to %s, which does not exist; trying local paths\n", EnvVar, path)
	}

	for _, candidate := range localCandidates {
		if fileExists(candidate) {
			fmt.Fprintf(w, "Using local dataset: %s\n", candidate)
			return candidate, nil
		}
	}

	fmt.Fprintf(w, "No local dataset found, downloading from %s\n", RemoteURL)
	path, err := fetch(RemoteURL)
	if err != nil {
		fmt.Fprintf(w, "Download failed: %v\n", err)
		return "", fmt.Errorf("dataset not found: set %s, place home_sales_revised.csv in the working directory, or check network access", EnvVar)
	}

	fmt.Fprintf(w, "Downloaded dataset to %s\n", path)
	return path, nil
}

// FetchRemote downloads a URL into a temporary staging directory and
// returns the staged file path.
func FetchRemote(url string) (string, error) {
	client := &http.Client{Timeout: downloadTimeout}

	resp, err := client.Get(url)
	if err != nil {
		return "", fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("failed to fetch %s: status %s", url, resp.Status)
	}

	dir, err := os.MkdirTemp("", "home_sales_")
	if err != nil {
		return "", fmt.Errorf("failed to create staging directory: %w", err)
	}

	path := filepath.Join(dir, "home_sales_revised.csv")
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create staging file: %w", err)
	}

	if _, err := io.Copy(f, resp.Body); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return "", fmt.Errorf("failed to write staging file: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to close staging file: %w", err)
	}

	return path, nil
}

// fileExists reports whether path names an existing regular file
func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
