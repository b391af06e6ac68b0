// Package physics is the built-in rigid body engine.
//
// It implements [engine.Module] for a subset of the MJCF model format:
// nested bodies with free, hinge and slide joints, primitive geoms, and
// motor actuators. Models are written into the module's in-memory
// filesystem and loaded by path:
//
//	mod := physics.NewModule()
//	_ = mod.FS().Mkdir("/working")
//	_ = mod.FS().WriteFile("/working/model.xml", src)
//	m, err := mod.LoadModel("/working/model.xml")
//
// Hinge and slide joints form a [dynamo.System] stepped by the integrator
// named in the model options. Free bodies fall under gravity and rest on
// ground planes through a penalty contact.
package physics
