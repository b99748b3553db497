// Package device defines the sink that an interpreted content stream draws
// into.
//
// The interpreter resolves every operator to a call on a [Device]: fills
// and strokes of paths, runs of text grouped into [Text], images, clips,
// transparency groups, soft masks and tiling pattern cells. Each call
// carries its own transformation matrix, so a device keeps no graphics
// state beyond its clip stack.
//
// Four devices are provided:
//
//   - [NullDevice] ignores everything. Embed it to write a device that
//     handles only a few calls.
//   - [BBoxDevice] accumulates the clipped device-space bounds of all
//     painted marks.
//   - [TraceDevice] logs each call through log/slog.
//   - [ListDevice] records calls for inspection or later [ListDevice.Replay].
package device
