//go:build !debug_hdl_table

package hdlutils

// StrictTeardown indicates that destroying a table which still holds active handles is an error
// rather than a diagnostic. It is true only when the debug_hdl_table build tag is present.
const StrictTeardown = false

// DebugValidate will call Validate on the provided object and panics if any errors are returned. This
// method no-ops unless the debug_hdl_table build tag is present
func DebugValidate(validatable Validatable) {
}
