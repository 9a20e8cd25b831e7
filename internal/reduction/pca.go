package reduction

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	"videotable/internal/services"
	"videotable/internal/tensor"
)

// PCA projects samples onto the leading eigenvectors of their covariance.
type PCA struct {
	k                 int
	features          int
	mean              []float64
	components        [][]float64 // k rows of length features
	explainedVariance []float64
}

type pcaParams struct {
	Technique         string      `json:"technique"`
	NComponents       int         `json:"n_components"`
	NFeatures         int         `json:"n_features"`
	Mean              []float64   `json:"mean"`
	Components        [][]float64 `json:"components"`
	ExplainedVariance []float64   `json:"explained_variance"`
}

// NewPCA returns an unfitted model keeping k components.
func NewPCA(k int) *PCA {
	return &PCA{k: k}
}

func (p *PCA) Components() int { return p.k }

func (p *PCA) Features() int { return p.features }

// ExplainedVariance returns the covariance eigenvalue of each kept component.
func (p *PCA) ExplainedVariance() []float64 {
	return append([]float64(nil), p.explainedVariance...)
}

func (p *PCA) FitTransform(d tensor.Dense) (tensor.Dense, error) {
	features := d.Shape.Channels()
	if p.k < 1 || p.k > features {
		return tensor.Dense{}, fmt.Errorf("%w: n_components %d must be between 1 and %d channels", services.ErrValidation, p.k, features)
	}
	rows := d.Shape.Pixels()
	for _, v := range d.Data {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return tensor.Dense{}, fmt.Errorf("%w: reduction input contains non-finite samples; configure nan_fill", services.ErrValidation)
		}
	}

	mean := make([]float64, features)
	for r := 0; r < rows; r++ {
		for c := 0; c < features; c++ {
			mean[c] += d.At(r, c)
		}
	}
	for c := range mean {
		mean[c] /= float64(rows)
	}

	centered := mat.NewDense(rows, features, nil)
	for r := 0; r < rows; r++ {
		for c := 0; c < features; c++ {
			centered.Set(r, c, d.At(r, c)-mean[c])
		}
	}

	var cov mat.SymDense
	cov.SymOuterK(1, centered.T())
	cov.ScaleSym(1/float64(max(rows-1, 1)), &cov)

	var eig mat.EigenSym
	if ok := eig.Factorize(&cov, true); !ok {
		return tensor.Dense{}, fmt.Errorf("%w: covariance eigendecomposition did not converge", services.ErrValidation)
	}
	values := eig.Values(nil)
	var vectors mat.Dense
	eig.VectorsTo(&vectors)

	order := make([]int, features)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return values[order[a]] > values[order[b]] })

	p.features = features
	p.mean = mean
	p.components = make([][]float64, p.k)
	p.explainedVariance = make([]float64, p.k)
	for i := 0; i < p.k; i++ {
		col := order[i]
		component := make([]float64, features)
		pivot := 0
		for f := 0; f < features; f++ {
			component[f] = vectors.At(f, col)
			if math.Abs(component[f]) > math.Abs(component[pivot]) {
				pivot = f
			}
		}
		if component[pivot] < 0 {
			for f := range component {
				component[f] = -component[f]
			}
		}
		p.components[i] = component
		p.explainedVariance[i] = math.Max(values[col], 0)
	}

	return p.project(d), nil
}

func (p *PCA) project(d tensor.Dense) tensor.Dense {
	out := tensor.NewDense(d.Shape.WithChannels(p.k), tensor.Float)
	for r := 0; r < d.Shape.Pixels(); r++ {
		for i, component := range p.components {
			var sum float64
			for f, w := range component {
				sum += (d.At(r, f) - p.mean[f]) * w
			}
			out.Set(r, i, sum)
		}
	}
	return out
}

func (p *PCA) InverseTransform(d tensor.Dense) (tensor.Dense, error) {
	if p.features == 0 {
		return tensor.Dense{}, fmt.Errorf("%w: pca model is not fitted", services.ErrValidation)
	}
	reduced := resizeChannels(d, p.k)
	out := tensor.NewDense(d.Shape.WithChannels(p.features), tensor.Float)
	for r := 0; r < reduced.Shape.Pixels(); r++ {
		for f := 0; f < p.features; f++ {
			sum := p.mean[f]
			for i, component := range p.components {
				sum += reduced.At(r, i) * component[f]
			}
			out.Set(r, f, sum)
		}
	}
	return out, nil
}

func (p *PCA) MarshalParams() (string, error) {
	if p.features == 0 {
		return "", fmt.Errorf("%w: pca model is not fitted", services.ErrValidation)
	}
	data, err := json.Marshal(pcaParams{
		Technique:         TechniquePCA,
		NComponents:       p.k,
		NFeatures:         p.features,
		Mean:              p.mean,
		Components:        p.components,
		ExplainedVariance: p.explainedVariance,
	})
	if err != nil {
		return "", fmt.Errorf("marshal pca params: %w", err)
	}
	return string(data), nil
}

func restorePCA(raw []byte) (*PCA, error) {
	var params pcaParams
	if err := json.Unmarshal(raw, &params); err != nil {
		return nil, fmt.Errorf("%w: parse pca params: %w", services.ErrValidation, err)
	}
	if params.NComponents < 1 || params.NFeatures < params.NComponents {
		return nil, fmt.Errorf("%w: pca params declare %d components over %d features", services.ErrValidation, params.NComponents, params.NFeatures)
	}
	if len(params.Mean) != params.NFeatures || len(params.Components) != params.NComponents {
		return nil, fmt.Errorf("%w: pca params have %d means and %d components", services.ErrValidation, len(params.Mean), len(params.Components))
	}
	for i, component := range params.Components {
		if len(component) != params.NFeatures {
			return nil, fmt.Errorf("%w: pca component %d has %d loadings, want %d", services.ErrValidation, i, len(component), params.NFeatures)
		}
	}
	return &PCA{
		k:                 params.NComponents,
		features:          params.NFeatures,
		mean:              params.Mean,
		components:        params.Components,
		explainedVariance: params.ExplainedVariance,
	}, nil
}
