// cmd/membership-setup performs the membership circuit's one-time,
// offline trusted setup: compile the R1CS once and run Groth16's setup
// ceremony to produce a proving/verification key pair, then write all
// three artifacts to disk as opaque blobs so cmd/membership-cli (or any
// other consumer) can load them at startup instead of compiling and
// keying the circuit itself.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"

	"github.com/consensys/gnark-crypto/ecc"
	"go.uber.org/zap"

	"github.com/zkcreds/membership/internal/common/config"
	"github.com/zkcreds/membership/internal/common/logger"
	"github.com/zkcreds/membership/internal/zkp/circuitmanager"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML configuration file (optional)")
	showVersion := flag.Bool("version", false, "print version information and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("membership-setup (%s/%s, %s)\n", runtime.GOOS, runtime.GOARCH, runtime.Version())
		os.Exit(0)
	}

	log, err := logger.New(logger.Options{Level: "info", Development: true})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal("failed to load configuration", zap.Error(err))
	}

	if err := run(cfg, log); err != nil {
		log.Fatal("trusted setup failed", zap.Error(err))
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	curve, err := curveByName(cfg.ZKP.Curve)
	if err != nil {
		return err
	}

	log.Info("running trusted setup",
		zap.String("curve", cfg.ZKP.Curve),
		zap.String("circuit_id", cfg.ZKP.CircuitName),
		zap.String("circuits_path", cfg.ZKP.CircuitsPath),
	)

	cs, pk, vk, err := circuitmanager.Compile(curve)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(cfg.ZKP.CircuitsPath, 0o755); err != nil {
		return fmt.Errorf("failed to create circuits directory: %w", err)
	}

	artifacts := []struct {
		extension string
		writer    io.WriterTo
	}{
		{"r1cs", cs},
		{"pk", pk},
		{"vk", vk},
	}

	for _, a := range artifacts {
		path := filepath.Join(cfg.ZKP.CircuitsPath, cfg.ZKP.CircuitName+"."+a.extension)
		if err := writeArtifact(path, a.writer); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
		log.Info("artifact written", zap.String("path", path))
	}

	log.Info("trusted setup complete", zap.String("circuit_id", cfg.ZKP.CircuitName))
	return nil
}

func writeArtifact(path string, w io.WriterTo) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = w.WriteTo(f)
	return err
}

func curveByName(curveName string) (ecc.ID, error) {
	switch curveName {
	case "bn254":
		return ecc.BN254, nil
	default:
		return 0, fmt.Errorf("unsupported curve: %s", curveName)
	}
}
