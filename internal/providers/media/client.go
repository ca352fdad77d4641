package media

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"adstudio/internal/domain"
)

const defaultTimeout = 60 * time.Second

// Options controls how the media client is configured. One model name per
// media kind; kinds without a model are rejected at submit time.
type Options struct {
	APIKey     string
	BaseURL    string
	ImageModel string
	VideoModel string
	AudioModel string
	HTTPClient *http.Client
	Logger     zerolog.Logger
}

// Client submits long-running generation requests to a Gemini-compatible API
// and polls the resulting operations.
type Client struct {
	apiKey string
	base   string
	models map[domain.MediaKind]string
	client *http.Client
	logger zerolog.Logger
}

// NewClient creates a media client.
func NewClient(opts Options) (*Client, error) {
	if opts.APIKey == "" {
		return nil, errors.New("media api key is required")
	}
	base := strings.TrimRight(opts.BaseURL, "/")
	if base == "" {
		base = "https://generativelanguage.googleapis.com/v1beta"
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	models := map[domain.MediaKind]string{}
	if opts.ImageModel != "" {
		models[domain.MediaImage] = opts.ImageModel
	}
	if opts.VideoModel != "" {
		models[domain.MediaVideo] = opts.VideoModel
	}
	if opts.AudioModel != "" {
		models[domain.MediaAudio] = opts.AudioModel
	}
	return &Client{
		apiKey: opts.APIKey,
		base:   base,
		models: models,
		client: client,
		logger: opts.Logger,
	}, nil
}

type submitInstance struct {
	Prompt string       `json:"prompt"`
	Image  *inlineImage `json:"image,omitempty"`
}

type inlineImage struct {
	BytesBase64Encoded string `json:"bytesBase64Encoded"`
	MimeType           string `json:"mimeType"`
}

type submitParameters struct {
	AspectRatio     string `json:"aspectRatio,omitempty"`
	Resolution      string `json:"resolution,omitempty"`
	DurationSeconds int    `json:"durationSeconds,omitempty"`
	SampleCount     int    `json:"sampleCount,omitempty"`
}

type submitRequest struct {
	Instances  []submitInstance `json:"instances"`
	Parameters submitParameters `json:"parameters"`
}

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

type operationEnvelope struct {
	Name     string    `json:"name"`
	Done     bool      `json:"done"`
	Error    *apiError `json:"error"`
	Response *struct {
		Error                 *apiError `json:"error"`
		GenerateVideoResponse *struct {
			GeneratedSamples []struct {
				Video struct {
					URI      string `json:"uri"`
					MimeType string `json:"mimeType"`
				} `json:"video"`
			} `json:"generatedSamples"`
			RAIMediaFilteredReasons []string `json:"raiMediaFilteredReasons"`
		} `json:"generateVideoResponse"`
		Predictions []struct {
			BytesBase64Encoded string `json:"bytesBase64Encoded"`
			MimeType           string `json:"mimeType"`
		} `json:"predictions"`
	} `json:"response"`
}

// Submit starts a generation run and returns its operation handle.
func (c *Client) Submit(ctx context.Context, req Request) (Handle, error) {
	model, ok := c.models[req.Kind]
	if !ok {
		return Handle{}, fmt.Errorf("no model configured for media kind %q", req.Kind)
	}

	instance := submitInstance{Prompt: req.Prompt}
	// The API accepts a single conditioning image; the first reference wins.
	if len(req.References) > 0 {
		ref := req.References[0]
		instance.Image = &inlineImage{
			BytesBase64Encoded: base64.StdEncoding.EncodeToString(ref.Data),
			MimeType:           ref.MIME,
		}
	}
	payload := submitRequest{
		Instances: []submitInstance{instance},
		Parameters: submitParameters{
			AspectRatio:     req.AspectRatio,
			Resolution:      req.Resolution,
			DurationSeconds: req.DurationSeconds,
			SampleCount:     1,
		},
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(payload); err != nil {
		return Handle{}, fmt.Errorf("encode submit: %w", err)
	}
	endpoint := fmt.Sprintf("%s/models/%s:predictLongRunning", c.base, model)
	env, err := c.do(ctx, http.MethodPost, endpoint, &buf)
	if err != nil {
		return Handle{}, err
	}
	if env.Name == "" {
		return Handle{}, errors.New("submit returned no operation name")
	}
	c.logger.Debug().Str("operation", env.Name).Str("model", model).Msg("generation submitted")
	return Handle{Name: env.Name}, nil
}

// Poll reads the current state of a submitted operation.
func (c *Client) Poll(ctx context.Context, h Handle) (Operation, error) {
	if h.Name == "" {
		return Operation{}, errors.New("empty operation handle")
	}
	endpoint := fmt.Sprintf("%s/%s", c.base, strings.TrimPrefix(h.Name, "/"))
	env, err := c.do(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Operation{}, err
	}
	return parseOperation(env), nil
}

// FetchAsset downloads the produced media. Provider download links require
// the API key as a query parameter.
func (c *Client) FetchAsset(ctx context.Context, rawURI string) ([]byte, string, error) {
	u, err := url.Parse(rawURI)
	if err != nil {
		return nil, "", fmt.Errorf("parse asset uri: %w", err)
	}
	q := u.Query()
	q.Set("key", c.apiKey)
	u.RawQuery = q.Encode()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, "", fmt.Errorf("build asset request: %w", err)
	}
	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, "", fmt.Errorf("fetch asset: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode >= 300 {
		return nil, "", fmt.Errorf("fetch asset: status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("read asset: %w", err)
	}
	mime := resp.Header.Get("Content-Type")
	if mime == "" {
		mime = "application/octet-stream"
	}
	return data, mime, nil
}

func (c *Client) do(ctx context.Context, method, endpoint string, body io.Reader) (*operationEnvelope, error) {
	httpReq, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	httpReq.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("media request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, fmt.Errorf("%w: status %d", domain.ErrAuthorization, resp.StatusCode)
	}
	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: requested entity was not found", domain.ErrAuthorization)
	}
	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("media request failed: status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var env operationEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("decode operation: %w", err)
	}
	return &env, nil
}

func parseOperation(env *operationEnvelope) Operation {
	op := Operation{Done: env.Done}
	if env.Error != nil {
		op.ErrorMessage = env.Error.Message
	}
	if env.Response == nil {
		return op
	}
	if env.Response.Error != nil {
		op.ResponseError = env.Response.Error.Message
	}
	if gv := env.Response.GenerateVideoResponse; gv != nil {
		op.FilteredReasons = gv.RAIMediaFilteredReasons
		if len(gv.GeneratedSamples) > 0 {
			op.AssetURI = gv.GeneratedSamples[0].Video.URI
			op.MIME = gv.GeneratedSamples[0].Video.MimeType
		}
	}
	if op.AssetURI == "" && len(env.Response.Predictions) > 0 {
		pred := env.Response.Predictions[0]
		if pred.BytesBase64Encoded != "" {
			if data, err := base64.StdEncoding.DecodeString(pred.BytesBase64Encoded); err == nil {
				op.AssetData = data
				op.MIME = pred.MimeType
			}
		}
	}
	return op
}

var _ Provider = (*Client)(nil)
