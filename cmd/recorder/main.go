package main

import (
	"context"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"iq-recorder/internal/capture"
	"iq-recorder/internal/catalog"
	"iq-recorder/internal/output"
	"iq-recorder/internal/platform/config"
	"iq-recorder/internal/platform/logger"
	"iq-recorder/internal/platform/metrics"
	"iq-recorder/internal/recorder"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

const shutdownTimeout = 5 * time.Second

func main() {
	_ = config.Load()

	port := config.GetEnv("PORT", "8080")
	logLevel := config.GetEnv("LOG_LEVEL", "info")
	logFormat := config.GetEnv("LOG_FORMAT", "json")

	params := recorder.Params{
		Channels:            config.GetEnvInt("CHANNELS", 1),
		BlocksCapacity:      config.GetEnvUint32("BLOCKS_BUFFER_CAPACITY", 1024),
		SamplesCapacity:     config.GetEnvUint32("SAMPLES_BUFFER_CAPACITY", 4*1024*1024),
		GainChangesCapacity: config.GetEnvUint32("GAIN_CHANGES_BUFFER_CAPACITY", 256),
		ZeroGapMax:          config.GetEnvUint32("ZERO_GAP_MAX", 100000),
		Decimation:          config.GetEnvInt("DECIMATION", 1),
		MarkerInterval:      config.GetEnvSeconds("MARKER_INTERVAL_SECONDS", 0),
		Duration:            config.GetEnvSeconds("DURATION_SECONDS", 10*time.Second),
	}
	outTemplate := config.GetEnv("OUTPUT_FILE", "recording_{TIMESTAMP}.iq")
	gainsEnable := config.GetEnvBool("GAINS_FILE_ENABLE", false)
	catalogPath := config.GetEnv("CATALOG_PATH", "")

	log := logger.New(logLevel, logFormat)

	recordingID := uuid.NewString()
	outPath := output.ExpandTemplate(outTemplate, recordingID, time.Now())

	outFile, err := output.Open(outPath)
	if err != nil {
		log.Error("open output failed", "path", outPath, "error", err)
		os.Exit(1)
	}
	defer outFile.Close()
	digest := output.NewDigestWriter(outFile)

	var gainsFile io.WriteCloser
	var gainsPath string
	if gainsEnable {
		gainsPath, err = output.GainsPath(outPath)
		if err != nil {
			log.Error("derive gains path failed", "path", outPath, "error", err)
			os.Exit(1)
		}
		gainsFile, err = output.Open(gainsPath)
		if err != nil {
			log.Error("open gains file failed", "path", gainsPath, "error", err)
			os.Exit(1)
		}
		defer gainsFile.Close()
	}

	met := metrics.New()
	var gainsOut io.Writer
	if gainsFile != nil {
		gainsOut = gainsFile
	}
	session, err := recorder.NewSession(params, digest, gainsOut, log, met)
	if err != nil {
		log.Error("invalid session parameters", "error", err)
		os.Exit(1)
	}
	h := recorder.NewHandler(session, log)

	r := chi.NewRouter()
	r.Use(logger.RequestLogger(log))
	r.Use(metrics.RequestMiddleware(met))
	r.Get("/metrics", func(w http.ResponseWriter, req *http.Request) {
		met.Handler(func() { session.RefreshBufferGauges(met) }).ServeHTTP(w, req)
	})
	r.Get("/status", h.Status)
	r.Post("/stop", h.Stop)

	srv := &http.Server{Addr: ":" + port, Handler: r}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("control server error", "error", err)
		}
	}()

	source := capture.NewSynthetic(capture.SyntheticConfig{
		Channels:        params.Channels,
		SampleRate:      float64(config.GetEnvInt("SAMPLE_RATE", 2_000_000)),
		BlockSize:       config.GetEnvUint32("BLOCK_SIZE", 1024),
		Decimation:      uint32(params.Decimation),
		Gain:            40,
		GainChangeEvery: config.GetEnvSeconds("GAIN_CHANGE_EVERY_SECONDS", 0),
	})
	source.Start(session)

	if params.Duration > 0 {
		time.AfterFunc(params.Duration, session.RequestStop)
	}
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		for range sigCh {
			session.RequestStop()
		}
	}()

	log.Info("recording",
		"id", recordingID,
		"output", outPath,
		"channels", params.Channels,
		"duration_sec", params.Duration.Seconds(),
		"port", port,
	)

	runErr := session.Run()
	source.Stop()

	session.LogSummary()
	if runErr != nil {
		log.Error("session ended abnormally", "error", runErr)
	}

	if catalogPath != "" {
		if err := recordInCatalog(catalogPath, recordingID, outPath, gainsPath, digest, session, params); err != nil {
			log.Error("catalog update failed", "error", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("control server shutdown error", "error", err)
	}

	if runErr != nil {
		outFile.Close()
		os.Exit(1)
	}
}

// recordInCatalog appends the completed session to the recordings index.
func recordInCatalog(path, id, outPath, gainsPath string, digest *output.DigestWriter, session *recorder.Session, params recorder.Params) error {
	cat, err := catalog.Open(path)
	if err != nil {
		return err
	}
	defer cat.Close()

	var total, dropped uint64
	for i := 0; i < params.Channels; i++ {
		st := session.ChannelStats(recorder.Channel(i))
		total += st.TotalSamples()
		dropped += st.DroppedSamples()
	}
	write := session.WriteStats()
	return cat.Add(catalog.Recording{
		ID:             id,
		Path:           outPath,
		GainsPath:      gainsPath,
		StartedAt:      session.StartedAt(),
		StoppedAt:      session.StoppedAt(),
		Channels:       params.Channels,
		TotalSamples:   total,
		DroppedSamples: dropped,
		OutputSamples:  write.OutputSamples,
		DataSize:       write.DataSize,
		Digest:         digest.Sum(),
		Status:         session.Status().String(),
	})
}
