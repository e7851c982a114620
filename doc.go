// Package linkedindl downloads LinkedIn videos.
//
// A download resolves the source URL to one fixed-bitrate rendition, then
// streams that rendition into a local file, retrying the whole capture when
// the connection fails:
//
//	req, err := linkedindl.NewRequest(url, "video.mp4",
//		linkedindl.WithQuality(types.Quality800K),
//		linkedindl.WithTimeLimit(30*time.Second),
//	)
//	if err != nil {
//		return err
//	}
//	out, err := linkedindl.New().Run(ctx, req)
//
// The file holds the raw bytes of the stream; nothing is re-encoded.
package linkedindl
