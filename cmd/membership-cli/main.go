// cmd/membership-cli is a demonstration entry point that wires the
// credential-set manager, prover, verifier, and trusted-root registry
// together end to end: create a set, generate a membership proof for one
// of its credentials, pin its root as trusted, and verify the proof.
//
// It expects cmd/membership-setup to have already written the circuit's
// R1CS, proving key, and verifying key under the configured circuits
// path -- this binary only ever loads those artifacts, it never runs the
// trusted setup itself.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"runtime"
	"time"

	"go.uber.org/zap"

	"github.com/zkcreds/membership/internal/common/config"
	"github.com/zkcreds/membership/internal/common/logger"
	"github.com/zkcreds/membership/internal/credential"
	"github.com/zkcreds/membership/internal/proof"
	"github.com/zkcreds/membership/internal/trustroot"
	"github.com/zkcreds/membership/internal/zkp/circuitmanager"
	"github.com/zkcreds/membership/internal/zkp/field"
	"github.com/zkcreds/membership/internal/zkp/prover"
	"github.com/zkcreds/membership/internal/zkp/verifier"
)

const version = "1.0.0"

func main() {
	configPath := flag.String("config", "", "path to a YAML configuration file (optional)")
	showVersion := flag.Bool("version", false, "print version information and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("membership-cli v%s (%s/%s, %s)\n", version, runtime.GOOS, runtime.GOARCH, runtime.Version())
		os.Exit(0)
	}

	log, err := initLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal("failed to load configuration", zap.Error(err))
	}

	log.Info("membership-cli starting",
		zap.String("version", version),
		zap.String("curve", cfg.ZKP.Curve),
		zap.String("circuit_id", cfg.ZKP.CircuitName),
	)

	if err := run(cfg, log); err != nil {
		log.Fatal("demo run failed", zap.Error(err))
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	hasher, err := field.New(cfg.ZKP.Curve)
	if err != nil {
		return err
	}

	manager := credential.NewManager(hasher, cfg.ZKP.MaxCredentialsPerSet, log)

	set, err := manager.Create("acme-alumni", []string{"alice@acme.example", "bob@acme.example", "carol@acme.example"}, credential.CreateOptions{
		Description: "ACME alumni network",
		Type:        credential.SetTypeUniversities,
	})
	if err != nil {
		return err
	}
	log.Info("credential set created", zap.String("set_id", set.ID), zap.String("root", set.Root))

	witness, err := manager.GenerateWitness(set.ID, "bob@acme.example")
	if err != nil {
		return err
	}

	circuitManager, err := circuitmanager.New(cfg.ZKP.Curve, cfg.ZKP.CircuitsPath, cfg.ZKP.CircuitName)
	if err != nil {
		return err
	}

	concurrency := cfg.ZKP.ProverConcurrency
	if concurrency <= 0 {
		concurrency = runtime.NumCPU()
	}

	groth16Prover := prover.New(circuitManager, hasher, cfg.ZKP.CircuitName, time.Duration(cfg.ZKP.ProofExpiryHours)*time.Hour, log)
	pool := prover.NewPool(groth16Prover, concurrency, log)
	pool.Start()
	defer pool.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.ZKP.ProofExpiryHours)*time.Hour)
	defer cancel()

	if err := pool.Submit(ctx, prover.Task{
		ID:         set.ID,
		SetID:      set.ID,
		Witness:    witness,
		Credential: "bob@acme.example",
		Ctx:        ctx,
	}); err != nil {
		return err
	}

	result := <-pool.Results()
	if result.Err != nil {
		return result.Err
	}
	p := result.Proof
	log.Info("proof generated", zap.String("proof_id", p.Metadata.ProofID))

	wire, err := proof.Serialize(p)
	if err != nil {
		return err
	}
	log.Info("proof serialized", zap.Int("bytes", len(wire)))

	registry := trustroot.New()
	if err := registry.Add(set.ID, set.Root, nil, nil); err != nil {
		return err
	}

	decoded, err := proof.Deserialize(wire)
	if err != nil {
		return err
	}

	v := verifier.New(circuitManager, registry)
	verifyResult := v.Verify(decoded)

	log.Info("verification complete",
		zap.Bool("valid", verifyResult.Valid),
		zap.Time("verified_at", verifyResult.VerifiedAt),
		zap.Any("errors", verifyResult.Errors),
	)

	if !verifyResult.Valid {
		return fmt.Errorf("expected proof to verify, got errors: %v", verifyResult.Errors)
	}

	return nil
}

func initLogger() (*zap.Logger, error) {
	return logger.New(logger.Options{Level: "info", Development: true})
}
