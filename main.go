package main

import (
	"fmt"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/plateocr/ocr-api/client"
	"github.com/plateocr/ocr-api/config"
	"github.com/plateocr/ocr-api/handler"
	"github.com/plateocr/ocr-api/service"
)

const version = "1.0.0"

var (
	configFile string
	portFlag   string
)

var rootCmd = &cobra.Command{
	Use:          "ocr-api",
	Short:        "HTTP service that extracts text from uploaded images",
	SilenceUsage: true,
	RunE:         run,
}

func init() {
	rootCmd.Flags().StringVarP(&configFile, "config", "c", "", "path to config file")
	rootCmd.Flags().StringVarP(&portFlag, "port", "p", "", "listen port (overrides config)")
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}
	if portFlag != "" {
		cfg.ServerPort = portFlag
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	logger := zerolog.New(os.Stdout).Level(level).With().
		Timestamp().
		Str("service", "ocr-api").
		Logger()

	var engine service.OCREngine
	switch cfg.Engine {
	case "paddle":
		engine = client.NewPaddleClient(cfg.PaddleURL)
	default:
		// Tesseract reads its models from TESSDATA_PREFIX as well.
		os.Setenv("TESSDATA_PREFIX", cfg.TessdataPrefix)
		engine = client.NewTesseractClient(cfg.TessdataPrefix, cfg.Language)
	}
	logger.Info().Str("engine", engine.Name()).Msg("OCR engine initialized")

	ocrService := service.NewOCRService(engine, service.NewPDFProcessor(), cfg.MaxUploadBytes, logger)
	ocrHandler := handler.NewOCRHandler(ocrService, logger, version, cfg.GPUEnabled)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), handler.RequestLogger(logger))
	router.MaxMultipartMemory = 32 << 20

	router.GET("/health", ocrHandler.Health)
	router.POST("/ocr", ocrHandler.Extract)

	logger.Info().Str("port", cfg.ServerPort).Msg("starting OCR API server")
	if err := router.Run(":" + cfg.ServerPort); err != nil {
		return fmt.Errorf("server exited: %w", err)
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
