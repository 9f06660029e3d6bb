package commands

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/atorhub/ANJ-Invoice-Creature-System-v2/client"
	"github.com/atorhub/ANJ-Invoice-Creature-System-v2/config"
	"github.com/atorhub/ANJ-Invoice-Creature-System-v2/logger"
	"github.com/atorhub/ANJ-Invoice-Creature-System-v2/service"
	"github.com/atorhub/ANJ-Invoice-Creature-System-v2/store"
)

// app holds the dependencies shared by the commands.
type app struct {
	cfg   *config.Config
	log   zerolog.Logger
	store store.BillStore
	bills *service.BillService
}

func newApp(configFile string) (*app, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, err
	}
	log := logger.New(cfg.LogLevel)

	bills, err := store.NewBoltStore(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening bill store %s: %w", cfg.DBPath, err)
	}

	extractor := service.NewTextExtractor(
		service.NewPDFProcessor(),
		service.NewImageProcessor(),
		newOCREngine(cfg),
		cfg.OCRWorkers,
	)

	return &app{
		cfg:   cfg,
		log:   log,
		store: bills,
		bills: service.NewBillService(extractor, bills),
	}, nil
}

// newOCREngine puts PaddleOCR in front of Tesseract when it is configured.
func newOCREngine(cfg *config.Config) client.OCREngine {
	var engines []client.OCREngine
	if cfg.PaddleOCRURL != "" {
		engines = append(engines, client.NewPaddleClient(cfg.PaddleOCRURL))
	}
	engines = append(engines, client.NewTesseractClient(cfg.TesseractDataPath, cfg.OCRLanguage))
	return client.NewChainEngine(engines...)
}

func (a *app) Close() error {
	return a.store.Close()
}
