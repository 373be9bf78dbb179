package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/SubSh2004/CampusZon-sub000/config"
)

// Verdict 分类服务对单张图片的判定
type Verdict struct {
	Flagged bool   `json:"flagged"`
	Label   string `json:"label"`
}

// Classifier 调用外部图片审核服务；服务本身不在本系统内实现
type Classifier struct {
	url  string
	http *http.Client
}

func NewClassifier(cfg config.ClassifierConfig) *Classifier {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Classifier{url: cfg.URL, http: &http.Client{Timeout: timeout}}
}

func (c *Classifier) Classify(ctx context.Context, imageURL string) (Verdict, error) {
	body, err := json.Marshal(map[string]string{"image_url": imageURL})
	if err != nil {
		return Verdict{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return Verdict{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return Verdict{}, fmt.Errorf("classify: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Verdict{}, fmt.Errorf("classify: status %d", resp.StatusCode)
	}

	var v Verdict
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		return Verdict{}, fmt.Errorf("decode verdict: %w", err)
	}
	return v, nil
}
