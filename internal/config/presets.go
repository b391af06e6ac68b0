package config

import (
	"os"
	"slices"
)

// Preset is a built-in model description.
type Preset struct {
	Name        string
	Description string
	// Policy is the control policy the model was written for.
	Policy string
	XML    string
}

const boxXML = `<mujoco model="box">
  <worldbody>
    <geom type="plane" size="1 1 0.1" rgba="0.8 0.8 0.8 1"/>
    <body pos="0 0 1">
      <geom type="box" size="0.2 0.2 0.2" rgba="0.8 0.3 0.3 1"/>
      <joint type="free"/>
    </body>
  </worldbody>
</mujoco>`

const humanoidXML = `<mujoco model="humanoid">
  <option timestep="0.01" gravity="0 0 -9.81"/>
  <worldbody>
    <geom type="plane" size="2 2 0.1" rgba="0.15 0.15 0.15 1"/>
    <body name="torso" pos="0 0 0.35" quat="0.7071 0.7071 0 0">
      <joint name="torso_joint" type="free"/>
      <geom type="box" size="0.15 0.2 0.3" rgba="0.8 0.6 0.4 1" mass="10"/>
      <body name="head" pos="0 0 0.4">
        <joint name="head_joint" type="hinge" axis="0 1 0"/>
        <geom type="sphere" size="0.12" rgba="0.9 0.8 0.7 1" mass="2"/>
      </body>
      <body name="left_arm" pos="-0.2 0 0.2">
        <joint name="left_arm_joint" type="hinge" axis="1 0 0"/>
        <geom type="cylinder" size="0.05 0.25" rgba="0.8 0.6 0.4 1" mass="1.5"/>
      </body>
      <body name="right_arm" pos="0.2 0 0.2">
        <joint name="right_arm_joint" type="hinge" axis="1 0 0"/>
        <geom type="cylinder" size="0.05 0.25" rgba="0.8 0.6 0.4 1" mass="1.5"/>
      </body>
      <body name="left_leg" pos="-0.08 0 -0.3">
        <joint name="left_leg_joint" type="hinge" axis="1 0 0"/>
        <geom type="cylinder" size="0.06 0.4" rgba="0.3 0.3 0.6 1" mass="3"/>
      </body>
      <body name="right_leg" pos="0.08 0 -0.3">
        <joint name="right_leg_joint" type="hinge" axis="1 0 0"/>
        <geom type="cylinder" size="0.06 0.4" rgba="0.3 0.3 0.6 1" mass="3"/>
      </body>
    </body>
  </worldbody>
  <actuator>
    <motor name="head_motor" joint="head_joint" gear="10" ctrllimited="true" ctrlrange="-1 1"/>
    <motor name="left_arm_motor" joint="left_arm_joint" gear="20" ctrllimited="true" ctrlrange="-1 1"/>
    <motor name="right_arm_motor" joint="right_arm_joint" gear="20" ctrllimited="true" ctrlrange="-1 1"/>
    <motor name="left_leg_motor" joint="left_leg_joint" gear="30" ctrllimited="true" ctrlrange="-1 1"/>
    <motor name="right_leg_motor" joint="right_leg_joint" gear="30" ctrllimited="true" ctrlrange="-1 1"/>
  </actuator>
</mujoco>`

const shapesXML = `<mujoco model="shapes">
  <option integrator="rk4"/>
  <worldbody>
    <geom type="plane" size="2 2 0.1" rgba="0.9 0.9 0.9 1"/>
    <body name="ball" pos="-0.6 0 0.8">
      <freejoint/>
      <geom type="sphere" size="0.15" rgba="0.2 0.6 0.9 1"/>
    </body>
    <body name="pill" pos="0 0 1.2" quat="0.9239 0.3827 0 0">
      <freejoint/>
      <geom type="capsule" size="0.08 0.2" rgba="0.9 0.6 0.2 1"/>
    </body>
    <body name="can" pos="0.6 0 1.6">
      <freejoint/>
      <geom type="cylinder" size="0.12 0.15" rgba="0.3 0.8 0.4 0.7"/>
    </body>
    <body name="egg" pos="0 0.6 1.0">
      <freejoint/>
      <geom type="ellipsoid" size="0.1 0.1 0.15" rgba="0.7 0.7 0.7 1"/>
    </body>
  </worldbody>
</mujoco>`

var Presets = map[string]*Preset{
	"box": {
		Name: "box", Description: "a box dropped onto a plane", Policy: "none", XML: boxXML,
	},
	"humanoid": {
		Name: "humanoid", Description: "a five-motor figure lying on the floor", Policy: "humanoid", XML: humanoidXML,
	},
	"shapes": {
		Name: "shapes", Description: "one body of every primitive shape", Policy: "none", XML: shapesXML,
	},
}

func GetPreset(name string) *Preset {
	p, ok := Presets[name]
	if !ok {
		return nil
	}
	return p
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// DefaultModel is the model shown when none is given.
func DefaultModel() string { return boxXML }

// ModelSource returns the description named by ref: a preset name or a
// file path.
func ModelSource(ref string) (string, error) {
	if p := GetPreset(ref); p != nil {
		return p.XML, nil
	}
	data, err := os.ReadFile(ref)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
