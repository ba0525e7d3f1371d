// Package file provides file-based configuration and prompt storage.
//
// ConfigStore persists user configuration as TOML under the ragdoc
// config directory. PromptStore serves user-editable LLM prompt
// templates with embedded defaults.
package file
