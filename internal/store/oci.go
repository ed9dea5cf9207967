package store

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/go-containerregistry/pkg/authn"
	"github.com/google/go-containerregistry/pkg/name"
	"github.com/google/go-containerregistry/pkg/v1/empty"
	"github.com/google/go-containerregistry/pkg/v1/mutate"
	"github.com/google/go-containerregistry/pkg/v1/remote"
	"github.com/google/go-containerregistry/pkg/v1/static"
	ocitypes "github.com/google/go-containerregistry/pkg/v1/types"
	"github.com/ogulcanaydogan/llm-perf-gate/pkg/types"
)

const baselineMediaType = ocitypes.MediaType("application/vnd.llm-perf-gate.baseline.v1+json")

// OCIStore keeps the baseline as a single-layer artifact in an OCI registry so
// CI runners without a shared filesystem compare against the same reference.
type OCIStore struct {
	ref     name.Reference
	options []remote.Option
	now     func() time.Time
}

func NewOCIStore(ref string, opts ...remote.Option) (*OCIStore, error) {
	r, err := name.ParseReference(ref, name.WithDefaultRegistry("ghcr.io"))
	if err != nil {
		return nil, fmt.Errorf("parse oci ref: %w", err)
	}
	if len(opts) == 0 {
		opts = []remote.Option{remote.WithAuthFromKeychain(authn.DefaultKeychain)}
	}
	return &OCIStore{ref: r, options: opts, now: time.Now}, nil
}

func (o *OCIStore) Location() string { return ociScheme + o.ref.String() }

func (o *OCIStore) Save(ctx context.Context, s types.Summary, sourceID string) (types.Baseline, error) {
	b, err := newBaseline(s, sourceID, o.now())
	if err != nil {
		return types.Baseline{}, err
	}
	raw, err := encodeBaseline(b)
	if err != nil {
		return types.Baseline{}, err
	}

	img, err := mutate.AppendLayers(empty.Image, static.NewLayer(raw, baselineMediaType))
	if err != nil {
		return types.Baseline{}, fmt.Errorf("append layer: %w", err)
	}
	img = mutate.MediaType(img, ocitypes.OCIManifestSchema1)
	if err := remote.Write(o.ref, img, o.remoteOptions(ctx)...); err != nil {
		return types.Baseline{}, fmt.Errorf("push baseline artifact: %w", err)
	}
	return b, nil
}

func (o *OCIStore) Load(ctx context.Context) (types.Baseline, error) {
	img, err := remote.Image(o.ref, o.remoteOptions(ctx)...)
	if err != nil {
		return types.Baseline{}, fmt.Errorf("%w: pull %s: %v", ErrBaselineUnavailable, o.ref, err)
	}
	layers, err := img.Layers()
	if err != nil {
		return types.Baseline{}, fmt.Errorf("%w: read layers: %v", ErrBaselineUnavailable, err)
	}
	if len(layers) == 0 {
		return types.Baseline{}, fmt.Errorf("%w: %s has no layers", ErrBaselineUnavailable, o.ref)
	}
	rc, err := layers[0].Uncompressed()
	if err != nil {
		return types.Baseline{}, fmt.Errorf("%w: read layer payload: %v", ErrBaselineUnavailable, err)
	}
	defer rc.Close()
	raw, err := io.ReadAll(rc)
	if err != nil {
		return types.Baseline{}, fmt.Errorf("%w: read layer bytes: %v", ErrBaselineUnavailable, err)
	}
	return decodeBaseline(raw, o.Location())
}

func (o *OCIStore) remoteOptions(ctx context.Context) []remote.Option {
	return append([]remote.Option{remote.WithContext(ctx)}, o.options...)
}
