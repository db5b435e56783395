package config

const (
	defaultCacheRoot         = "~/.cache/previewcache"
	defaultLogDir            = "~/.local/share/previewcache/logs"
	defaultChunkSize         = 25
	defaultDebounceSeconds   = 3
	defaultRendererBinary    = "melt"
	defaultLogFormat         = "console"
	defaultLogLevel          = "info"
	defaultProfileExtension  = "mp4"
	defaultProfileParameters = "vcodec=libx264 vb=1000k acodec=aac g=25 preset=veryfast threads=0"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			CacheRoot: defaultCacheRoot,
			LogDir:    defaultLogDir,
		},
		Preview: Preview{
			ChunkSize:         defaultChunkSize,
			DebounceSeconds:   defaultDebounceSeconds,
			AutoPreview:       true,
			ProfileExtension:  defaultProfileExtension,
			ProfileParameters: defaultProfileParameters,
		},
		Renderer: Renderer{
			Binary: defaultRendererBinary,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
