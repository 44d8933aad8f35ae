package hannahttp

// mediaTypeTable maps a lowercased file extension (including the leading
// dot) to a media type. Deliberately small: it covers the file kinds a
// static handler is likely to serve, not a general-purpose registry.
var mediaTypeTable = map[string]string{
	".html": "text/html",
	".txt":  "text/plain",
	".jpg":  "image/jpeg",
	".css":  "text/css",
	".js":   "text/javascript",
	".mp4":  "video/mp4",
}
