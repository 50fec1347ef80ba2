package types

// Plugin describes an accelerator compiler-plugin binary found on disk.
type Plugin struct {
	// Stable identifier: the file name including extension.
	// example: libLiteRtCompilerPlugin_Qualcomm.so
	ID string `json:"id"`
	// Human-friendly name: the file stem.
	// example: libLiteRtCompilerPlugin_Qualcomm
	Name string `json:"name"`
	// Vendor part of the name, when it can be told apart from the marker.
	// example: Qualcomm
	Vendor string `json:"vendor,omitempty"`
	// Absolute path to the binary.
	// example: /opt/accel/plugins/libLiteRtCompilerPlugin_Qualcomm.so
	Path string `json:"path"`
}
