// Package quantize affine-maps real or over-wide integer samples into an
// 8 or 16 bit unsigned pixel domain and back.
//
// Round trips are exact only to within one quantization step over the chosen
// range; samples outside the range are clipped on the way in.
package quantize
