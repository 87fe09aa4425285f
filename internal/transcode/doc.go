// Package transcode builds and runs the ffmpeg invocations that mux a sermon
// video with its audio.
//
// A Job is either single-track (video plus one audio file, used for the
// original language) or mixed-track (video plus original and translation
// audio combined through a volume automation filter graph). Video is always
// stream-copied; audio is encoded with the configured codec and bitrate.
//
// The engine runs to completion once started. Cancellation is observed only
// before a job starts.
package transcode
