package config

// ConfigBackend is where `intake config set` persists values between runs.
// Linux and other platforms keep a JSON object in
// $XDG_CONFIG_HOME/intake/config.json; macOS stores them in the
// com.intake.app defaults domain. Environment variables are applied on top
// of whatever the backend returns and are never written back.
//
// ok is false when the key has never been set, in which case the built-in
// default applies.
type ConfigBackend interface {
	GetString(key string) (val string, ok bool, err error)
	GetInt(key string) (val int, ok bool, err error)
	GetBool(key string) (val bool, ok bool, err error)
	SetString(key, val string) error
	SetInt(key string, val int) error
	SetBool(key string, val bool) error
	Delete(key string) error
}
