package client

import (
	"context"
	"fmt"

	"github.com/otiai10/gosseract/v2"

	"github.com/atorhub/ANJ-Invoice-Creature-System-v2/logger"
)

type TesseractClient struct {
	dataPath string
	language string
}

func NewTesseractClient(dataPath, language string) *TesseractClient {
	if language == "" {
		language = "eng"
	}
	return &TesseractClient{
		dataPath: dataPath,
		language: language,
	}
}

func (tc *TesseractClient) Name() string { return "tesseract" }

// ExtractText runs Tesseract over the image bytes. A fresh gosseract client
// is used per call since one client must not be shared between goroutines.
func (tc *TesseractClient) ExtractText(ctx context.Context, img []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	client := gosseract.NewClient()
	defer client.Close()

	if tc.dataPath != "" {
		client.SetTessdataPrefix(tc.dataPath)
	}

	if err := client.SetLanguage(tc.language); err != nil {
		return "", fmt.Errorf("failed to set language: %w", err)
	}

	if err := client.SetImageFromBytes(img); err != nil {
		return "", fmt.Errorf("failed to set image: %w", err)
	}

	text, err := client.Text()
	if err != nil {
		return "", fmt.Errorf("failed to extract text: %w", err)
	}

	log := logger.FromContext(ctx)
	if conf, ok := meanConfidence(client); ok {
		log.Debug().Float64("confidence", conf).Int("chars", len(text)).Msg("tesseract finished")
	}

	return text, nil
}

// meanConfidence averages the per-word confidence of the last recognition.
func meanConfidence(client *gosseract.Client) (float64, bool) {
	boxes, err := client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil || len(boxes) == 0 {
		return 0, false
	}

	var total float64
	for _, box := range boxes {
		total += box.Confidence
	}
	return total / float64(len(boxes)), true
}
