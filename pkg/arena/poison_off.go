//go:build !poison

package arena

// poisonPayload is a no-op; build with the poison tag to overwrite freed
// payloads.
func poisonPayload(b Block) {}
