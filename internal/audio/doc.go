// Package audio plays a sound cue when a notification appears on screen.
// Sounds are chosen by notification type and decoded with beep; WAV, OGG
// and MP3 files are supported.
package audio
