// Package inference prepares MRI scans and asks the model server to classify them.
package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"time"

	"github.com/neuroscan-api/internal/domain"
	"golang.org/x/image/draw"
)

// InputSize is the square edge, in pixels, the model was trained on.
const InputSize = 240

// tumorThreshold: scores below it are classified as Tumor.
const tumorThreshold = 0.5

// maxPixels caps the declared size of an upload before it is decoded.
const maxPixels = 50_000_000

type Client struct {
	url  string
	http *http.Client
}

func NewClient(url string, timeout time.Duration) *Client {
	return &Client{url: url, http: &http.Client{Timeout: timeout}}
}

type predictRequest struct {
	Instances [][][][3]float32 `json:"instances"`
}

type predictResponse struct {
	Predictions [][]float64 `json:"predictions"`
}

// Classify decodes a JPEG or PNG scan and returns the model's verdict.
func (c *Client) Classify(ctx context.Context, img []byte) (domain.Classification, error) {
	tensor, err := Preprocess(img)
	if err != nil {
		return domain.Classification{}, err
	}
	body, err := json.Marshal(predictRequest{Instances: [][][][3]float32{tensor}})
	if err != nil {
		return domain.Classification{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return domain.Classification{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return domain.Classification{}, fmt.Errorf("model server: %v: %w", err, domain.ErrUpstream)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return domain.Classification{}, fmt.Errorf("model server status %d: %s: %w", resp.StatusCode, msg, domain.ErrUpstream)
	}

	var out predictResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return domain.Classification{}, fmt.Errorf("decode model response: %v: %w", err, domain.ErrUpstream)
	}
	if len(out.Predictions) == 0 || len(out.Predictions[0]) == 0 {
		return domain.Classification{}, fmt.Errorf("model returned no score: %w", domain.ErrUpstream)
	}
	return Interpret(out.Predictions[0][0]), nil
}

// Interpret maps a raw sigmoid score to a labelled result with a percent confidence.
func Interpret(p float64) domain.Classification {
	if p < tumorThreshold {
		return domain.Classification{Result: domain.ResultTumor, Confidence: p * 100}
	}
	return domain.Classification{Result: domain.ResultNoTumor, Confidence: (1 - p) * 100}
}

// Preprocess decodes img, drops any alpha channel, resizes it to InputSize
// square with bilinear sampling and scales channels to [0,1].
func Preprocess(img []byte) ([][][3]float32, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(img))
	if err != nil {
		return nil, fmt.Errorf("decode image: %v: %w", err, domain.ErrBadRequest)
	}
	if int64(cfg.Width)*int64(cfg.Height) > maxPixels {
		return nil, fmt.Errorf("image is %dx%d pixels: %w", cfg.Width, cfg.Height, domain.ErrBadRequest)
	}
	src, _, err := image.Decode(bytes.NewReader(img))
	if err != nil {
		return nil, fmt.Errorf("decode image: %v: %w", err, domain.ErrBadRequest)
	}

	dst := image.NewRGBA(image.Rect(0, 0, InputSize, InputSize))
	draw.Draw(dst, dst.Bounds(), image.Black, image.Point{}, draw.Src)
	draw.BiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)

	out := make([][][3]float32, InputSize)
	for y := 0; y < InputSize; y++ {
		row := make([][3]float32, InputSize)
		for x := 0; x < InputSize; x++ {
			i := dst.PixOffset(x, y)
			row[x] = [3]float32{
				float32(dst.Pix[i]) / 255,
				float32(dst.Pix[i+1]) / 255,
				float32(dst.Pix[i+2]) / 255,
			}
		}
		out[y] = row
	}
	return out, nil
}
