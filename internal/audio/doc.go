// Package audio decodes source recordings into raw PCM via ffmpeg and
// re-encodes fixed-duration segments as mono 16 kHz WAV for upload.
package audio
