package internal

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/lrstanley/go-ytdlp"
)

// ErrNoCaptions indicates the video has no subtitles in the requested language
var ErrNoCaptions = errors.New("no captions available")

var videoIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)

// YouTube fetches caption transcripts with yt-dlp and caches them as plain text
type YouTube struct {
	cacheDir       string
	transcriptsDir string
	logger         *Logger
	install        func(ctx context.Context)
}

// NewYouTube creates a caption fetcher. SRT files land in cacheDir, plain text in transcriptsDir.
func NewYouTube(cacheDir, transcriptsDir string, logger *Logger) *YouTube {
	return &YouTube{
		cacheDir:       cacheDir,
		transcriptsDir: transcriptsDir,
		logger:         logger,
		install: func(ctx context.Context) {
			ytdlp.MustInstall(ctx, nil)
		},
	}
}

// ParseArg normalizes YouTube video IDs and URLs into a watch URL and the video ID
func ParseArg(arg string) (string, string) {
	arg = strings.TrimSpace(arg)
	if strings.HasPrefix(arg, "https://") || strings.HasPrefix(arg, "http://") {
		videoID, err := getVideoID(arg)
		if err != nil {
			return arg, arg
		}
		return arg, videoID
	}
	return "https://www.youtube.com/watch?v=" + arg, arg
}

// getVideoID extracts the video ID from a YouTube URL
func getVideoID(youtubeURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(youtubeURL))
	if err != nil {
		return "", fmt.Errorf("parsing URL: %w", err)
	}

	switch u.Host {
	case "www.youtube.com", "youtube.com", "m.youtube.com", "youtu.be":
	default:
		return "", fmt.Errorf("not a YouTube URL: %s", youtubeURL)
	}

	if v := u.Query().Get("v"); v != "" {
		return v, nil
	}

	// youtu.be/<id>, /shorts/<id>, /embed/<id>
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if last := parts[len(parts)-1]; last != "" && last != "watch" {
		return last, nil
	}

	return "", fmt.Errorf("could not extract video ID from URL: %s", youtubeURL)
}

// IsValidYouTubeID checks if a string looks like a valid YouTube video ID
func IsValidYouTubeID(id string) bool {
	return videoIDPattern.MatchString(id)
}

// FetchTranscript returns the plain-text captions of a video, from cache when possible
func (yt *YouTube) FetchTranscript(ctx context.Context, arg, lang string) (string, error) {
	youtubeURL, videoID := ParseArg(arg)
	if !IsValidYouTubeID(videoID) {
		return "", fmt.Errorf("invalid YouTube video: %s", arg)
	}
	if lang == "" {
		lang = "en"
	}

	cached := yt.transcriptPath(videoID)
	if FileExists(cached) {
		yt.logger.Debug("using cached transcript %s", cached)
		text, err := os.ReadFile(cached)
		if err != nil {
			return "", fmt.Errorf("reading cached transcript: %w", err)
		}
		return string(text), nil
	}

	srtPath, err := yt.downloadCaptions(ctx, youtubeURL, videoID, lang)
	if err != nil {
		return "", err
	}
	defer func() {
		if err := os.Remove(srtPath); err != nil {
			yt.logger.Error("removing caption file: %v", err)
		}
	}()

	content, err := os.ReadFile(srtPath)
	if err != nil {
		return "", fmt.Errorf("reading SRT file: %w", err)
	}
	text := SRTToText(string(content))
	if text == "" {
		return "", fmt.Errorf("%s: %w", videoID, ErrNoCaptions)
	}

	if err := yt.SaveTranscript(videoID, text); err != nil {
		return "", err
	}
	return text, nil
}

// downloadCaptions runs yt-dlp for manual or automatic subtitles converted to SRT
func (yt *YouTube) downloadCaptions(ctx context.Context, youtubeURL, videoID, lang string) (string, error) {
	if err := EnsureDirs(yt.cacheDir); err != nil {
		return "", fmt.Errorf("creating cache directory: %w", err)
	}
	yt.install(ctx)

	yt.logger.Info("downloading %s captions for %s", lang, videoID)
	dl := ytdlp.New().
		WriteSubs().
		WriteAutoSubs().
		SubLangs(lang).
		ConvertSubs("srt").
		SkipDownload().
		NoPlaylist().
		Output(filepath.Join(yt.cacheDir, "%(id)s"))

	result, err := dl.Run(ctx, youtubeURL)
	if err != nil {
		if result != nil {
			yt.logger.Error("yt-dlp stderr: %s", result.Stderr)
		}
		return "", fmt.Errorf("downloading captions: %w", err)
	}

	files, err := filepath.Glob(filepath.Join(yt.cacheDir, videoID+"*.srt"))
	if err != nil || len(files) == 0 {
		return "", fmt.Errorf("%s: %w", videoID, ErrNoCaptions)
	}
	return files[0], nil
}

// SaveTranscript stores a transcript under the transcripts directory
func (yt *YouTube) SaveTranscript(videoID, transcript string) error {
	if err := EnsureDirs(yt.transcriptsDir); err != nil {
		return fmt.Errorf("creating transcripts directory: %w", err)
	}
	if err := os.WriteFile(yt.transcriptPath(videoID), []byte(transcript), 0644); err != nil {
		return fmt.Errorf("saving transcript: %w", err)
	}
	return nil
}

func (yt *YouTube) transcriptPath(videoID string) string {
	return filepath.Join(yt.transcriptsDir, videoID+".txt")
}

// SRTToText converts SRT subtitles to deduplicated plain text lines
func SRTToText(content string) string {
	lines := removeDuplicates(parseSRT(content))
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// parseSRT extracts text content from SRT format
func parseSRT(content string) []string {
	var lines []string

	content = strings.ReplaceAll(content, "\r\n", "\n")
	for block := range strings.SplitSeq(content, "\n\n") {
		blockLines := strings.Split(strings.TrimSpace(block), "\n")
		if len(blockLines) >= 3 {
			// Skip sequence number and timestamp, get text lines
			for i := 2; i < len(blockLines); i++ {
				if strings.TrimSpace(blockLines[i]) != "" {
					lines = append(lines, strings.TrimSpace(blockLines[i]))
				}
			}
		}
	}

	return lines
}

// removeDuplicates eliminates consecutive repeated lines; auto captions repeat the previous cue
func removeDuplicates(lines []string) []string {
	result := make([]string, 0, len(lines))
	prevLine := ""

	for _, line := range lines {
		isDuplicate := prevLine != "" && (strings.Contains(line, prevLine) || strings.Contains(prevLine, line))
		if !isDuplicate {
			result = append(result, line)
		}
		prevLine = line
	}

	return result
}
