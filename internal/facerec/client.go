package facerec

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ReferenceImage aponta uma foto de referência identificada por conselheiro.
type ReferenceImage struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// RecognizeResult é a resposta crua do microsserviço de reconhecimento.
type RecognizeResult struct {
	Recognized bool    `json:"recognized"`
	MatchID    string  `json:"match_id"`
	Confidence float64 `json:"confidence"`
}

// Client encapsula chamadas ao serviço externo de reconhecimento facial.
// O algoritmo de comparação é opaco; este cliente apenas envia a foto
// capturada e o conjunto de referências.
type Client struct {
	httpClient *http.Client
	endpoint   string
}

// NewClient cria um cliente apontando para o endpoint configurado.
func NewClient(endpoint string) (*Client, error) {
	if strings.TrimSpace(endpoint) == "" {
		return nil, errors.New("facerec: endpoint obrigatório")
	}
	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		endpoint:   strings.TrimRight(endpoint, "/"),
	}, nil
}

// Recognize envia a foto e as referências para POST /recognize.
func (c *Client) Recognize(ctx context.Context, photoPath string, refs []ReferenceImage) (*RecognizeResult, error) {
	photo, err := os.Open(photoPath)
	if err != nil {
		return nil, fmt.Errorf("facerec: abrir foto: %w", err)
	}
	defer photo.Close()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("image", filepath.Base(photoPath))
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, photo); err != nil {
		return nil, err
	}

	refsJSON, err := json.Marshal(refs)
	if err != nil {
		return nil, err
	}
	if err := writer.WriteField("reference_images", string(refsJSON)); err != nil {
		return nil, err
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/recognize", &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("facerec: chamada falhou: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("facerec: status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var result RecognizeResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("facerec: resposta inválida: %w", err)
	}
	return &result, nil
}
