// Package hwexer drives low-level hardware from user space: a DRM/KMS
// display controller through the atomic mode-setting API, a PWM device
// through two fixed ioctl commands, a DMA sink and a GPIO line.
//
// The root package owns device handles and capability negotiation. The
// display pipeline (resource enumeration, dumb buffers, framebuffers and
// atomic commits) lives in package mode, the PWM protocol in package pwm.
package hwexer
