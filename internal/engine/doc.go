// Package engine defines the contract between the viewer and an external
// physics engine module.
//
// The engine is treated as an opaque black box:
//
//   - [Module]: virtual filesystem, model parsing, data construction, stepping
//   - [Model]: static topology exposed as flat buffers indexed by geom id
//   - [Data]: mutable state exposed as flat buffers indexed by body id
//   - [Loader]: the dynamic module loader capability
//   - [Cache]: process-wide, init-once holder of the loaded module
//
// Buffers use a fixed stride: 3 for positions and sizes, 4 for quaternions
// (w first) and colors.
package engine
