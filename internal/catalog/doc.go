// Package catalog resolves an episode reference into the tracks to download.
//
// ManifestClient reads a TOML job manifest from disk or over HTTP. Manifests
// list tracks with their segments and reference AES-128 keys by name;
// AESDecrypter turns those references back into keys when segments arrive.
package catalog
