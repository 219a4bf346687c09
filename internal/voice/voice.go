// Package voice provides the speech-to-text and text-to-speech gateways.
package voice

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/netip"
	"path"
	"strings"
	"syscall"
	"time"

	"github.com/sashabaranov/go-openai"
)

// MaxFetchBytes caps remote audio downloads.
const MaxFetchBytes = 25 << 20

// Transcriber converts audio to text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio io.Reader, filename string) (string, error)
	Name() string
}

// Synthesizer converts text to a WAV audio stream. Callers close the stream.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) (io.ReadCloser, error)
	Name() string
}

// Config selects an OpenAI-compatible audio backend.
type Config struct {
	Provider           string
	APIKey             string
	BaseURL            string
	TranscriptionModel string
	SpeechModel        string
	SpeechVoice        string
}

// Client implements Transcriber and Synthesizer against the OpenAI audio API.
type Client struct {
	client             *openai.Client
	provider           string
	transcriptionModel string
	speechModel        string
	speechVoice        string
}

// NewClient creates an audio client. Groq is reached through its OpenAI-compatible URL.
func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%s API key is required", cfg.Provider)
	}

	oc := openai.DefaultConfig(cfg.APIKey)
	transcription, speech, voiceName := openai.Whisper1, string(openai.TTSModel1), string(openai.VoiceAlloy)

	switch strings.ToLower(cfg.Provider) {
	case "groq":
		oc.BaseURL = "https://api.groq.com/openai/v1"
		transcription, speech, voiceName = "whisper-large-v3", "playai-tts", "Arista-PlayAI"
	case "openai", "":
	default:
		return nil, fmt.Errorf("unknown voice provider %q", cfg.Provider)
	}
	if cfg.BaseURL != "" {
		oc.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}

	c := &Client{
		client:             openai.NewClientWithConfig(oc),
		provider:           strings.ToLower(cfg.Provider),
		transcriptionModel: transcription,
		speechModel:        speech,
		speechVoice:        voiceName,
	}
	if cfg.TranscriptionModel != "" {
		c.transcriptionModel = cfg.TranscriptionModel
	}
	if cfg.SpeechModel != "" {
		c.speechModel = cfg.SpeechModel
	}
	if cfg.SpeechVoice != "" {
		c.speechVoice = cfg.SpeechVoice
	}
	if c.provider == "" {
		c.provider = "openai"
	}
	return c, nil
}

// Name returns the provider name.
func (c *Client) Name() string {
	return c.provider
}

// Transcribe uploads audio and returns the transcript text.
func (c *Client) Transcribe(ctx context.Context, audio io.Reader, filename string) (string, error) {
	if filename == "" {
		filename = "audio.wav"
	}

	resp, err := c.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    c.transcriptionModel,
		FilePath: filename,
		Reader:   audio,
		Format:   openai.AudioResponseFormatJSON,
	})
	if err != nil {
		return "", err
	}
	return resp.Text, nil
}

// Synthesize returns WAV audio for text.
func (c *Client) Synthesize(ctx context.Context, text string) (io.ReadCloser, error) {
	resp, err := c.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          openai.SpeechModel(c.speechModel),
		Input:          text,
		Voice:          openai.SpeechVoice(c.speechVoice),
		ResponseFormat: openai.SpeechResponseFormatWav,
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// Fetch errors callers can match on.
var (
	ErrBlockedAddress = errors.New("audio URL resolves to a non-public address")
	ErrAudioTooLarge  = errors.New("audio exceeds the download limit")
)

// maxRedirects matches the net/http default.
const maxRedirects = 10

// Fetcher downloads remote audio so it can be forwarded to a Transcriber.
// Connections to loopback, private, link-local and unspecified addresses are
// refused after DNS resolution, including on redirects.
type Fetcher struct {
	client   *http.Client
	maxBytes int64
}

// NewFetcher creates a fetcher with a bounded timeout.
func NewFetcher(timeout time.Duration) *Fetcher {
	return newFetcher(timeout, MaxFetchBytes, publicOnly)
}

func newFetcher(timeout time.Duration, maxBytes int64, control func(network, address string, c syscall.RawConn) error) *Fetcher {
	dialer := &net.Dialer{Timeout: 10 * time.Second, Control: control}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	// A proxy would make the dial check see the proxy address instead of the target.
	transport.Proxy = nil
	transport.DialContext = dialer.DialContext

	return &Fetcher{
		client: &http.Client{
			Timeout:   timeout,
			Transport: transport,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= maxRedirects {
					return errors.New("too many redirects")
				}
				if req.URL.Scheme != "http" && req.URL.Scheme != "https" {
					return fmt.Errorf("redirect to unsupported scheme %q", req.URL.Scheme)
				}
				return nil
			},
		},
		maxBytes: maxBytes,
	}
}

// publicOnly is a net.Dialer Control hook. address is the resolved ip:port.
func publicOnly(_, address string, _ syscall.RawConn) error {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return err
	}
	ip, err := netip.ParseAddr(host)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrBlockedAddress, host)
	}
	if !isPublic(ip) {
		return fmt.Errorf("%w: %s", ErrBlockedAddress, ip)
	}
	return nil
}

// sharedAddressSpace is the carrier-grade NAT range (RFC 6598).
var sharedAddressSpace = netip.MustParsePrefix("100.64.0.0/10")

func isPublic(ip netip.Addr) bool {
	ip = ip.Unmap()
	switch {
	case ip.IsLoopback(), ip.IsPrivate(), ip.IsUnspecified(),
		ip.IsLinkLocalUnicast(), ip.IsLinkLocalMulticast(),
		ip.IsInterfaceLocalMulticast(), ip.IsMulticast():
		return false
	case sharedAddressSpace.Contains(ip):
		return false
	}
	return true
}

// Fetch opens rawURL and returns its body and a filename derived from the URL path.
// Reading past the size limit fails with ErrAudioTooLarge instead of truncating.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (io.ReadCloser, string, error) {
	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		return nil, "", errors.New("audio URL must be http or https")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", err
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("failed to fetch audio: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, "", fmt.Errorf("failed to fetch audio: status %d", resp.StatusCode)
	}
	if resp.ContentLength > f.maxBytes {
		resp.Body.Close()
		return nil, "", fmt.Errorf("%w: %d bytes declared", ErrAudioTooLarge, resp.ContentLength)
	}

	name := path.Base(req.URL.Path)
	if name == "" || name == "/" || name == "." || !strings.Contains(name, ".") {
		name = "audio.wav"
	}

	return &cappedBody{ReadCloser: http.MaxBytesReader(nil, resp.Body, f.maxBytes)}, name, nil
}

type cappedBody struct {
	io.ReadCloser
}

func (b *cappedBody) Read(p []byte) (int, error) {
	n, err := b.ReadCloser.Read(p)
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return n, fmt.Errorf("%w: more than %d bytes", ErrAudioTooLarge, tooLarge.Limit)
	}
	return n, err
}
