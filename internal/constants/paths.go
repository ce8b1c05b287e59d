package constants

// Placeholders understood by toolchain argument templates.
const (
	PlaceholderSource       = "{src}"
	PlaceholderDir          = "{dir}"
	PlaceholderArtifact     = "{artifact}"
	PlaceholderKeystore     = "{keystore}"
	PlaceholderKeystorePass = "{keystore_pass}"
	PlaceholderKeyAlias     = "{key_alias}"
)
