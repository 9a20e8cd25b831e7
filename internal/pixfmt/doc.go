// Package pixfmt negotiates raw frame layouts with the external codec engine.
//
// Encode asks for planar gbrp when the codec is the certified lossless ffv1
// and packed rgb otherwise, then probes the finished container because engine
// builds may silently substitute another format. Decode always probes again
// and chooses the read path from what the container holds: direct layouts are
// transposed back, bgr0 goes through DecodeFallback (exact, stride padded, or
// packed), and recognized YUV substitutes are converted by the engine into the
// packed request. Anything else is an UnsupportedPixelFormatError.
package pixfmt
