package artifact

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ProtonMail/go-crypto/openpgp" //nolint:staticcheck // maintained fork

	"github.com/aexvir/tap"
)

var (
	// ErrChecksumMismatch is returned when the archive bytes don't hash to the declared digest.
	ErrChecksumMismatch = errors.New("checksum mismatch")
	// ErrInvalidChecksum is returned when the declared digest isn't a sha256 hex string.
	ErrInvalidChecksum = errors.New("invalid sha256 checksum")
	// ErrSignature is returned when a detached signature doesn't verify.
	ErrSignature = errors.New("signature verification failed")
)

// Verifier checks downloaded archives before anything is extracted from them.
type Verifier struct{}

// NewVerifier creates a verifier.
func NewVerifier() *Verifier {
	return &Verifier{}
}

// Verify hashes the file at path and compares it with the expected sha256 hex digest.
// A file that doesn't match is removed so it can't be picked up from the cache again.
func (v *Verifier) Verify(path, expected string) error {
	file, err := os.Open(path)
	if err != nil {
		return tap.Fail("artifact.verify", tap.KindFilesystem, path, err)
	}
	defer file.Close()

	if err := VerifyReader(file, expected); err != nil {
		if errors.Is(err, ErrChecksumMismatch) {
			file.Close()
			os.Remove(path)
		}
		return tap.Fail("artifact.verify", tap.KindIntegrity, path, err)
	}

	return nil
}

// VerifyReader hashes everything read from r and compares it with the expected sha256 hex digest.
func VerifyReader(r io.Reader, expected string) error {
	want, err := decodeDigest(expected)
	if err != nil {
		return err
	}

	hasher := sha256.New()
	if _, err := io.Copy(hasher, r); err != nil {
		return fmt.Errorf("failed to hash data: %w", err)
	}

	got := hasher.Sum(nil)
	if !bytes.Equal(got, want) {
		return fmt.Errorf("%w, got %s want %s", ErrChecksumMismatch, hex.EncodeToString(got), hex.EncodeToString(want))
	}

	return nil
}

// SHA256File returns the lowercase hex sha256 digest of a file.
func SHA256File(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	hasher := sha256.New()
	if _, err := io.Copy(hasher, file); err != nil {
		return "", fmt.Errorf("failed to hash %s: %w", path, err)
	}

	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// CheckDigest reports whether expected is a usable sha256 hex digest, wrapping
// [ErrInvalidChecksum] when it isn't. Callers use it to reject a source before
// downloading anything.
func CheckDigest(expected string) error {
	_, err := decodeDigest(expected)
	return err
}

func decodeDigest(expected string) ([]byte, error) {
	expected = strings.TrimSpace(expected)
	if len(expected) != sha256.Size*2 {
		return nil, fmt.Errorf("%w: %q must be %d hex characters", ErrInvalidChecksum, expected, sha256.Size*2)
	}

	digest, err := hex.DecodeString(expected)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrInvalidChecksum, expected, err)
	}

	return digest, nil
}

// VerifySignature checks a detached pgp signature, armored or binary, of the file at path
// against the armored public key.
func (v *Verifier) VerifySignature(path, signature, armoredKey string) error {
	keyring, err := openpgp.ReadArmoredKeyRing(strings.NewReader(armoredKey))
	if err != nil {
		return tap.Fail("artifact.signature", tap.KindIntegrity, path, fmt.Errorf("%w: failed to read public key: %v", ErrSignature, err))
	}

	file, err := os.Open(path)
	if err != nil {
		return tap.Fail("artifact.signature", tap.KindFilesystem, path, err)
	}
	defer file.Close()

	sig, err := os.Open(signature)
	if err != nil {
		return tap.Fail("artifact.signature", tap.KindFilesystem, signature, err)
	}
	defer sig.Close()

	_, err = openpgp.CheckArmoredDetachedSignature(keyring, file, sig, nil)
	if err != nil {
		// not armored, retry as binary
		if _, serr := file.Seek(0, io.SeekStart); serr != nil {
			return tap.Fail("artifact.signature", tap.KindFilesystem, path, serr)
		}
		if _, serr := sig.Seek(0, io.SeekStart); serr != nil {
			return tap.Fail("artifact.signature", tap.KindFilesystem, signature, serr)
		}
		_, err = openpgp.CheckDetachedSignature(keyring, file, sig, nil)
	}
	if err != nil {
		return tap.Fail("artifact.signature", tap.KindIntegrity, path, fmt.Errorf("%w: %v", ErrSignature, err))
	}

	return nil
}
