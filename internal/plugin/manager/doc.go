// Package manager tracks accelerator compiler plugins from discovery on disk
// through loading and unloading.
//
// A Manager owns every library handle it opens. Load failures of single
// plugins are recorded per plugin and published as events rather than
// returned, so one broken vendor binary does not prevent the others from
// being used.
package manager
