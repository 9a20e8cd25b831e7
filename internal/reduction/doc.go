// Package reduction wraps linear dimensionality reduction over a tensor's
// channel axis behind the Model interface, with a serializable parameter blob
// that rebuilds the exact inverse without re-fitting.
//
// PCA is the only technique today; its blob is JSON, optionally zstd
// compressed and base64 wrapped behind a "zstd:" prefix.
package reduction
