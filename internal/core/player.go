package core

// Player is the playback-widget seam. The engine drives it for accepted
// remote actions; local actions originate at the widget itself.
type Player interface {
	Load(videoID string)
	Play()
	Pause()
	SeekTo(seconds float64)
	CurrentTime() float64
	VideoID() string
}
