package services

import (
	"context"
	"encoding/xml"
	"fmt"
	"html"
	"io"
	"log"
	"net/http"
	urlpkg "net/url"
	"regexp"
	"strings"
	"time"

	ytapi "github.com/hightemp/youtube-transcript-api-go/api"
	yt "github.com/kkdai/youtube/v2"
)

const maxAudioBytes = 100 * 1024 * 1024

var (
	videoIDPattern   = regexp.MustCompile(`(?:v=|\/v\/|youtu\.be\/|embed\/|shorts\/)([a-zA-Z0-9_-]{11})`)
	captionTracks    = regexp.MustCompile(`"captionTracks"\s*:\s*\[(.*?)\],\s*"`)
	captionBaseURL   = regexp.MustCompile(`"baseUrl"\s*:\s*"(.*?)"`)
	watchPageTitle   = regexp.MustCompile(`<title>(.*?) - YouTube</title>`)
	browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

// AudioTranscriber turns raw audio into text.
type AudioTranscriber interface {
	TranscribeAudio(ctx context.Context, audio []byte, mimeType string) (string, error)
}

type YouTubeService struct {
	httpClient    *http.Client
	transcriptAPI *ytapi.YouTubeTranscriptApi
	ytClient      *yt.Client
	transcriber   AudioTranscriber
}

type timedTextXML struct {
	XMLName xml.Name  `xml:"transcript"`
	Texts   []textXML `xml:"text"`
}

type textXML struct {
	Start string `xml:"start,attr"`
	Dur   string `xml:"dur,attr"`
	Text  string `xml:",chardata"`
}

func NewYouTubeService(transcriber AudioTranscriber) *YouTubeService {
	return &YouTubeService{
		httpClient:    &http.Client{Timeout: 30 * time.Second},
		transcriptAPI: ytapi.NewYouTubeTranscriptApi(),
		ytClient:      &yt.Client{},
		transcriber:   transcriber,
	}
}

// ExtractVideoID returns the 11 character id of a YouTube URL, or "".
func ExtractVideoID(rawURL string) string {
	if parsed, err := urlpkg.Parse(rawURL); err == nil {
		host := strings.ToLower(parsed.Host)
		path := strings.Trim(parsed.Path, "/")

		if strings.Contains(host, "youtube.com") {
			if v := parsed.Query().Get("v"); len(v) == 11 {
				return v
			}
			parts := strings.Split(path, "/")
			if len(parts) >= 2 {
				switch parts[0] {
				case "shorts", "embed", "v":
					if len(parts[1]) == 11 {
						return parts[1]
					}
				}
			}
		}

		if strings.Contains(host, "youtu.be") {
			if candidate := strings.Split(path, "/")[0]; len(candidate) == 11 {
				return candidate
			}
		}
	}

	if m := videoIDPattern.FindStringSubmatch(rawURL); len(m) > 1 {
		return m[1]
	}
	return ""
}

// Transcript resolves the text of a video: captions first, then the timedtext
// page, then an audio download transcribed by the model.
func (s *YouTubeService) Transcript(ctx context.Context, videoURL string) (string, error) {
	videoID := ExtractVideoID(videoURL)
	if videoID == "" {
		return "", fmt.Errorf("invalid YouTube URL: %s", videoURL)
	}

	transcript, captionErr := s.GetTranscript(videoID)
	if captionErr == nil {
		log.Printf("Fetched transcript for video %s (%d chars)", videoID, len(transcript))
		return transcript, nil
	}
	log.Printf("Transcript extraction failed for %s: %v", videoID, captionErr)

	if s.transcriber == nil {
		return "", fmt.Errorf("transcript extraction failed for video %s: %w", videoID, captionErr)
	}

	audio, mimeType, err := s.DownloadAudio(videoURL)
	if err != nil {
		return "", fmt.Errorf("transcript extraction failed for video %s: %v; audio fallback download failed: %w", videoID, captionErr, err)
	}

	transcribed, err := s.transcriber.TranscribeAudio(ctx, audio, mimeType)
	if err != nil {
		return "", fmt.Errorf("transcript extraction failed for video %s: %v; STT fallback transcription failed: %w", videoID, captionErr, err)
	}
	return transcribed, nil
}

// GetTranscript fetches the captions of a video, preferring English tracks.
func (s *YouTubeService) GetTranscript(videoID string) (string, error) {
	transcript, err := s.transcriptAPI.GetTranscript(videoID, []string{"en", "en-US", "en-GB"})
	if err != nil {
		transcript, err = s.transcriptAPI.GetTranscript(videoID, nil)
		if err != nil {
			legacy, legacyErr := s.getTranscriptViaTimedText(videoID)
			if legacyErr == nil {
				return legacy, nil
			}
			return "", fmt.Errorf("no subtitles available via transcript API (%v) and timedtext fallback failed (%v)", err, legacyErr)
		}
	}

	var parts []string
	for _, entry := range transcript.Entries {
		if text := strings.TrimSpace(entry.Text); text != "" {
			parts = append(parts, text)
		}
	}
	if len(parts) == 0 {
		return "", fmt.Errorf("subtitle track is empty")
	}
	return strings.Join(parts, " "), nil
}

func (s *YouTubeService) fetchWatchPage(videoID string) (string, error) {
	req, err := http.NewRequest(http.MethodGet, "https://www.youtube.com/watch?v="+videoID, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", browserUserAgent)
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch YouTube page: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read YouTube page: %w", err)
	}
	return string(body), nil
}

func (s *YouTubeService) getTranscriptViaTimedText(videoID string) (string, error) {
	page, err := s.fetchWatchPage(videoID)
	if err != nil {
		return "", err
	}

	captionURL, err := extractCaptionURL(page)
	if err != nil {
		return "", err
	}

	resp, err := s.httpClient.Get(captionURL)
	if err != nil {
		return "", fmt.Errorf("failed to fetch captions: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read captions: %w", err)
	}

	transcript, err := parseCaptionsXML(data)
	if err != nil {
		return "", fmt.Errorf("failed to parse captions XML: %w", err)
	}
	return transcript, nil
}

// VideoTitle reads the title from the watch page; empty when unavailable.
func (s *YouTubeService) VideoTitle(videoID string) string {
	page, err := s.fetchWatchPage(videoID)
	if err != nil {
		return ""
	}
	if m := watchPageTitle.FindStringSubmatch(page); len(m) > 1 {
		return html.UnescapeString(m[1])
	}
	return ""
}

func extractCaptionURL(page string) (string, error) {
	matches := captionTracks.FindStringSubmatch(page)
	if len(matches) < 2 {
		return "", fmt.Errorf("no captions available for this video")
	}

	urlMatches := captionBaseURL.FindStringSubmatch(matches[1])
	if len(urlMatches) < 2 {
		return "", fmt.Errorf("caption track found but baseUrl missing")
	}

	u := strings.ReplaceAll(urlMatches[1], `\u0026`, "&")
	return strings.ReplaceAll(u, `\/`, "/"), nil
}

func parseCaptionsXML(data []byte) (string, error) {
	var tt timedTextXML
	if err := xml.Unmarshal(data, &tt); err != nil {
		return "", err
	}

	var parts []string
	for _, t := range tt.Texts {
		if text := strings.TrimSpace(html.UnescapeString(t.Text)); text != "" {
			parts = append(parts, text)
		}
	}
	if len(parts) == 0 {
		return "", fmt.Errorf("captions XML empty")
	}
	return strings.Join(parts, " "), nil
}

// DownloadAudio downloads the highest bitrate audio stream of a video.
func (s *YouTubeService) DownloadAudio(videoURL string) ([]byte, string, error) {
	video, err := s.ytClient.GetVideo(videoURL)
	if err != nil {
		return nil, "", fmt.Errorf("failed to fetch YouTube video metadata: %w", err)
	}

	formats := video.Formats.WithAudioChannels()
	if len(formats) == 0 {
		return nil, "", fmt.Errorf("no audio formats available")
	}

	best := formats[0]
	for _, f := range formats {
		if f.Bitrate > best.Bitrate {
			best = f
		}
	}

	stream, _, err := s.ytClient.GetStream(video, &best)
	if err != nil {
		return nil, "", fmt.Errorf("failed to open audio stream: %w", err)
	}
	defer stream.Close()

	audio, err := io.ReadAll(io.LimitReader(stream, maxAudioBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("failed to read audio stream: %w", err)
	}
	if len(audio) > maxAudioBytes {
		return nil, "", fmt.Errorf("audio stream exceeds %d MB limit", maxAudioBytes/(1024*1024))
	}

	mimeType := strings.TrimSpace(strings.Split(best.MimeType, ";")[0])
	if mimeType == "" {
		mimeType = "audio/mp4"
	}
	return audio, mimeType, nil
}
