package edge

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// trustedClientToken is the public token the Edge browser uses for the
	// read-aloud service.
	trustedClientToken = "6A5AA1D4EAFF4E9FB37E23D68491D6F4"

	// VoicesURL is the voice catalog endpoint.
	VoicesURL = "https://speech.platform.bing.com/consumer/speech/synthesize/readaloud/voices/list?trustedclienttoken=" + trustedClientToken

	// SynthURL is the WebSocket synthesis endpoint.
	SynthURL = "wss://speech.platform.bing.com/consumer/speech/synthesize/readaloud/edge/v1?TrustedClientToken=" + trustedClientToken

	// outputFormat selects the audio container the engine streams back.
	outputFormat = "audio-24khz-48kbitrate-mono-mp3"

	// DefaultTimeout caps both the catalog fetch and a single synthesis call.
	DefaultTimeout = 30 * time.Second

	defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36 Edg/124.0.0.0"
)

// Request describes one synthesis call. Voice must be an engine short name;
// Rate is a percent adjustment and Pitch a Hz adjustment, both encoded with
// explicit signs before hitting the wire.
type Request struct {
	Text  string
	Voice string
	Rate  int
	Pitch int
}

// Client speaks the Edge read-aloud protocol: voice catalog over HTTP,
// synthesis over WebSocket.
type Client struct {
	httpClient *http.Client
	dialer     *websocket.Dialer
	voicesURL  string
	synthURL   string
	userAgent  string
}

// NewClient constructs a Client against the public read-aloud endpoints.
func NewClient() *Client {
	return &Client{
		httpClient: &http.Client{Timeout: DefaultTimeout},
		dialer: &websocket.Dialer{
			HandshakeTimeout: 10 * time.Second,
		},
		voicesURL: VoicesURL,
		synthURL:  SynthURL,
		userAgent: defaultUserAgent,
	}
}

// SetUserAgent overrides the User-Agent sent on catalog and synthesis
// requests (used to carry the app identity from the manifest).
func (c *Client) SetUserAgent(ua string) {
	if strings.TrimSpace(ua) != "" {
		c.userAgent = ua
	}
}

// ListVoices fetches the full voice catalog.
func (c *Client) ListVoices(ctx context.Context) ([]Voice, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.voicesURL, nil)
	if err != nil {
		return nil, fmt.Errorf("edge: create voices request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("edge: fetch voices: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("edge: voices endpoint returned status %d: %s", resp.StatusCode, string(body))
	}

	var voices []Voice
	if err := json.NewDecoder(resp.Body).Decode(&voices); err != nil {
		return nil, fmt.Errorf("edge: decode voices: %w", err)
	}
	return voices, nil
}

// Synthesize converts text to MP3 bytes. The whole clip is collected before
// returning so callers never observe a partial result.
func (c *Client) Synthesize(ctx context.Context, req Request) ([]byte, error) {
	if req.Voice == "" {
		return nil, fmt.Errorf("edge: voice is required")
	}
	if strings.TrimSpace(req.Text) == "" {
		return nil, fmt.Errorf("edge: text is required")
	}

	connID := strings.ReplaceAll(uuid.NewString(), "-", "")
	url := c.synthURL + "&ConnectionId=" + connID

	header := http.Header{}
	header.Set("User-Agent", c.userAgent)
	header.Set("Origin", "chrome-extension://jdiccldimpdaibmpdkjnbmckianbfold")

	conn, resp, err := c.dialer.DialContext(ctx, url, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("edge: dial synthesis endpoint (status %d): %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("edge: dial synthesis endpoint: %w", err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		conn.SetReadDeadline(deadline)
		conn.SetWriteDeadline(deadline)
	} else {
		conn.SetReadDeadline(time.Now().Add(DefaultTimeout))
		conn.SetWriteDeadline(time.Now().Add(DefaultTimeout))
	}

	ts := time.Now().UTC().Format("Mon Jan 02 2006 15:04:05 GMT+0000 (Coordinated Universal Time)")

	speechConfig := fmt.Sprintf(
		"X-Timestamp:%s\r\nContent-Type:application/json; charset=utf-8\r\nPath:speech.config\r\n\r\n"+
			`{"context":{"synthesis":{"audio":{"metadataoptions":{"sentenceBoundaryEnabled":"false","wordBoundaryEnabled":"false"},"outputFormat":"%s"}}}}`,
		ts, outputFormat)
	if err := conn.WriteMessage(websocket.TextMessage, []byte(speechConfig)); err != nil {
		return nil, fmt.Errorf("edge: send speech.config: %w", err)
	}

	ssml := buildSSML(req.Text, req.Voice, FormatRate(req.Rate), FormatPitch(req.Pitch))
	ssmlMsg := fmt.Sprintf(
		"X-RequestId:%s\r\nContent-Type:application/ssml+xml\r\nX-Timestamp:%s\r\nPath:ssml\r\n\r\n%s",
		strings.ReplaceAll(uuid.NewString(), "-", ""), ts, ssml)
	if err := conn.WriteMessage(websocket.TextMessage, []byte(ssmlMsg)); err != nil {
		return nil, fmt.Errorf("edge: send ssml: %w", err)
	}

	var audio []byte
	for {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("edge: synthesis interrupted: %w", ctx.Err())
		default:
		}

		msgType, msg, err := conn.ReadMessage()
		if err != nil {
			return nil, fmt.Errorf("edge: read synthesis stream: %w", err)
		}

		switch msgType {
		case websocket.TextMessage:
			if strings.Contains(string(msg), "Path:turn.end") {
				if len(audio) == 0 {
					return nil, fmt.Errorf("edge: engine returned no audio")
				}
				return audio, nil
			}
		case websocket.BinaryMessage:
			// Binary frames carry a 2-byte big-endian header length, the
			// header text, then the payload.
			if len(msg) < 2 {
				return nil, fmt.Errorf("edge: short binary frame (%d bytes)", len(msg))
			}
			headerLen := int(binary.BigEndian.Uint16(msg[:2]))
			if len(msg) < 2+headerLen {
				return nil, fmt.Errorf("edge: truncated binary frame header")
			}
			if strings.Contains(string(msg[2:2+headerLen]), "Path:audio") {
				audio = append(audio, msg[2+headerLen:]...)
			}
		}
	}
}
