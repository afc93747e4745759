// Package circuitmanager loads the membership circuit's compiled R1CS
// and Groth16 key pair as opaque, pre-built artifacts and memoizes them
// per curve, the way the teacher's Groth16Prover memoizes compiled
// circuits in a sync.Map guarded by a slow-path mutex. The trusted setup
// that produces those artifacts is a separate, one-time offline step
// (cmd/membership-setup) -- this package never runs it on the
// request/runtime path.
package circuitmanager

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/constraint"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/frontend/cs/r1cs"

	"github.com/zkcreds/membership/internal/apperrors"
	"github.com/zkcreds/membership/internal/zkp/circuits"
)

// Artifact bundles the constraint system and key pair a prover or
// verifier needs for one curve.
type Artifact struct {
	CS constraint.ConstraintSystem
	PK groth16.ProvingKey
	VK groth16.VerifyingKey
}

// Manager loads and memoizes Artifacts. The zero value is not usable;
// build one with New (production, disk-backed) or NewForTesting
// (in-process, tests only).
type Manager struct {
	curve        ecc.ID
	circuitsPath string
	circuitName  string

	mu        sync.Mutex
	artifacts sync.Map // curve string -> *Artifact
}

// New builds a Manager that loads the membership circuit's R1CS,
// proving key, and verifying key from files named
// "<circuitName>.{r1cs,pk,vk}" under circuitsPath, matching spec's
// framing of these artifacts as opaque blobs produced by an external,
// one-time trusted setup (see cmd/membership-setup). It performs no I/O
// itself -- files are only read the first time Get is called.
func New(curveName, circuitsPath, circuitName string) (*Manager, error) {
	curve, err := curveByName(curveName)
	if err != nil {
		return nil, err
	}
	if circuitsPath == "" || circuitName == "" {
		return nil, apperrors.New(apperrors.KindCircuitInitializationFailed,
			"circuitsPath and circuitName must not be empty")
	}
	return &Manager{curve: curve, circuitsPath: circuitsPath, circuitName: circuitName}, nil
}

// NewForTesting builds a Manager whose Artifact comes from an in-process
// trusted setup, compiled and keyed once at construction time. It exists
// so tests can exercise the prover/verifier pipeline without a prior
// offline setup step; production code always uses New, whose Get never
// calls groth16.Setup.
func NewForTesting(curveName string) (*Manager, error) {
	curve, err := curveByName(curveName)
	if err != nil {
		return nil, err
	}
	cs, pk, vk, err := Compile(curve)
	if err != nil {
		return nil, err
	}
	m := &Manager{curve: curve}
	m.artifacts.Store(curve.String(), &Artifact{CS: cs, PK: pk, VK: vk})
	return m, nil
}

// Get returns the memoized Artifact for the manager's curve, loading it
// from disk on first use.
func (m *Manager) Get() (*Artifact, error) {
	key := m.curve.String()
	if cached, ok := m.artifacts.Load(key); ok {
		return cached.(*Artifact), nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if cached, ok := m.artifacts.Load(key); ok {
		return cached.(*Artifact), nil
	}
	artifact, err := m.load()
	if err != nil {
		return nil, err
	}
	m.artifacts.Store(key, artifact)
	return artifact, nil
}

// Curve returns the curve this manager's artifacts are bound to.
func (m *Manager) Curve() ecc.ID {
	return m.curve
}

func (m *Manager) load() (*Artifact, error) {
	cs := groth16.NewCS(m.curve)
	if err := readArtifact(m.artifactPath("r1cs"), cs); err != nil {
		return nil, apperrors.Wrap(apperrors.KindCircuitNotFound,
			fmt.Sprintf("failed to load compiled circuit for %q", m.circuitName), err)
	}

	pk := groth16.NewProvingKey(m.curve)
	if err := readArtifact(m.artifactPath("pk"), pk); err != nil {
		return nil, apperrors.Wrap(apperrors.KindCircuitNotFound,
			fmt.Sprintf("failed to load proving key for %q", m.circuitName), err)
	}

	vk := groth16.NewVerifyingKey(m.curve)
	if err := readArtifact(m.artifactPath("vk"), vk); err != nil {
		return nil, apperrors.Wrap(apperrors.KindVerificationKeyNotFound,
			fmt.Sprintf("failed to load verification key for %q", m.circuitName), err)
	}

	return &Artifact{CS: cs, PK: pk, VK: vk}, nil
}

func (m *Manager) artifactPath(extension string) string {
	return filepath.Join(m.circuitsPath, m.circuitName+"."+extension)
}

func readArtifact(path string, dst io.ReaderFrom) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = dst.ReadFrom(f)
	return err
}

// Compile runs the membership circuit's one-time trusted setup: it
// builds the R1CS and runs groth16.Setup over it. This is the only place
// in the module frontend.Compile/groth16.Setup are called; it backs
// cmd/membership-setup's offline artifact-generation step and
// NewForTesting's in-process test fixtures, never the request/runtime
// Get path.
func Compile(curveID ecc.ID) (constraint.ConstraintSystem, groth16.ProvingKey, groth16.VerifyingKey, error) {
	var circuit circuits.MembershipCircuit
	cs, err := frontend.Compile(curveID.ScalarField(), r1cs.NewBuilder, &circuit)
	if err != nil {
		return nil, nil, nil, apperrors.Wrap(apperrors.KindCircuitInitializationFailed, "failed to compile membership circuit", err)
	}
	pk, vk, err := groth16.Setup(cs)
	if err != nil {
		return nil, nil, nil, apperrors.Wrap(apperrors.KindCircuitInitializationFailed, "failed to run groth16 setup", err)
	}
	return cs, pk, vk, nil
}

func curveByName(curveName string) (ecc.ID, error) {
	switch curveName {
	case "bn254":
		return ecc.BN254, nil
	default:
		return 0, apperrors.New(apperrors.KindCircuitInitializationFailed,
			fmt.Sprintf("unsupported curve: %s", curveName))
	}
}
