// Package models downloads the speech models holdvox needs at runtime:
// the whisper transcription model and a piper voice for offline speech.
package models

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/ewoodruff/holdvox/internal/config"
)

const (
	whisperModelURL  = "https://huggingface.co/ggerganov/whisper.cpp/resolve/main/ggml-base.en.bin"
	whisperModelName = "ggml-base.en.bin"

	piperVoiceBase = "https://huggingface.co/rhasspy/piper-voices/resolve/main/en/en_US/lessac/medium/"
	piperVoiceName = "en_US-lessac-medium.onnx"
)

// DownloadWhisper downloads the whisper ggml model to the default models
// directory. It shows download progress on stdout.
func DownloadWhisper() error {
	dest := filepath.Join(config.DefaultModelsDir(), whisperModelName)
	return downloadFile(whisperModelURL, dest, whisperModelName)
}

// DownloadPiperVoice downloads the default piper voice (model plus its JSON
// sidecar) to the default voices directory.
func DownloadPiperVoice() error {
	voicesDir := config.DefaultVoicesDir()
	for _, name := range []string{piperVoiceName, piperVoiceName + ".json"} {
		dest := filepath.Join(voicesDir, name)
		if err := downloadFile(piperVoiceBase+name, dest, name); err != nil {
			return err
		}
	}
	return nil
}

// downloadFile fetches url into destPath. A partial download never replaces
// an existing file: the body is written to a temp file and renamed on success.
// Files that already exist with nonzero size are skipped.
func downloadFile(url, destPath, label string) error {
	if info, err := os.Stat(destPath); err == nil && info.Size() > 0 {
		fmt.Printf("  %s already exists: %s (%.1f MB)\n", label, destPath, float64(info.Size())/(1024*1024))
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
		return fmt.Errorf("creating destination dir: %w", err)
	}

	fmt.Printf("  Downloading %s\n", url)
	fmt.Printf("  Destination: %s\n", destPath)

	resp, err := http.Get(url) //nolint:gosec // URLs are compile-time constants
	if err != nil {
		return fmt.Errorf("downloading %s: %w", label, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download failed: HTTP %d", resp.StatusCode)
	}

	tmpPath := destPath + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}

	pr := &progressWriter{
		writer: f,
		total:  resp.ContentLength,
		label:  label,
	}

	written, err := io.Copy(pr, resp.Body)
	f.Close()
	if err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("writing %s: %w", label, err)
	}

	fmt.Printf("\n  Downloaded %.1f MB\n", float64(written)/(1024*1024))

	if err := os.Rename(tmpPath, destPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("moving %s into place: %w", label, err)
	}

	return nil
}

// progressWriter wraps an io.Writer and prints download progress.
type progressWriter struct {
	writer  io.Writer
	total   int64
	written int64
	label   string
}

func (pw *progressWriter) Write(p []byte) (int, error) {
	n, err := pw.writer.Write(p)
	pw.written += int64(n)
	if pw.total > 0 {
		pct := float64(pw.written) / float64(pw.total) * 100
		fmt.Printf("\r  %s: %.1f MB / %.1f MB (%.0f%%)",
			pw.label,
			float64(pw.written)/(1024*1024),
			float64(pw.total)/(1024*1024),
			pct)
	} else {
		fmt.Printf("\r  %s: %.1f MB downloaded",
			pw.label,
			float64(pw.written)/(1024*1024))
	}
	return n, err
}

// RunInteractiveDownload prompts the user which models to download and
// downloads them.
func RunInteractiveDownload() error {
	fmt.Println("=== Model Download ===")
	fmt.Println()
	fmt.Printf("Models will be downloaded under: %s\n", config.DefaultDataDir())
	fmt.Println()
	fmt.Println("Which models would you like to download?")
	fmt.Println("  [1] Whisper (base.en, ~142 MB) - transcription")
	fmt.Println("  [2] Piper voice (lessac medium, ~60 MB) - offline speech")
	fmt.Println("  [3] Both")
	fmt.Println()
	fmt.Print("Choice [1/2/3]: ")

	var choice string
	fmt.Scanln(&choice)
	choice = strings.TrimSpace(choice)

	fmt.Println()

	switch choice {
	case "1":
		fmt.Println("Downloading whisper model...")
		return DownloadWhisper()
	case "2":
		fmt.Println("Downloading piper voice...")
		return DownloadPiperVoice()
	case "3":
		fmt.Println("Downloading all models...")
		fmt.Println()
		fmt.Println("[1/2] Whisper model:")
		if err := DownloadWhisper(); err != nil {
			return fmt.Errorf("whisper download failed: %w", err)
		}
		fmt.Println()
		fmt.Println("[2/2] Piper voice:")
		if err := DownloadPiperVoice(); err != nil {
			return fmt.Errorf("piper voice download failed: %w", err)
		}
		fmt.Println()
		fmt.Println("All models downloaded successfully!")
		return nil
	default:
		return fmt.Errorf("invalid choice: %q (expected 1, 2, or 3)", choice)
	}
}
