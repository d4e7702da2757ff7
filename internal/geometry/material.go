package geometry

import (
	"strings"

	"github.com/RMahshie/bridgesim/pkg/models"
)

// pecConductivity is the conductivity (S/m) above which a metal is treated as a
// perfect conductor
const pecConductivity = 1e6

// FR4Epsilon is the relative permittivity used for FR4 substrate
const FR4Epsilon = 4.4

// MaterialSpec is a material reference as written in part files and scenes
type MaterialSpec struct {
	Name         string   `yaml:"name" json:"name"`
	Permittivity *float64 `yaml:"permittivity,omitempty" json:"permittivity,omitempty"`
	Conductivity *float64 `yaml:"conductivity,omitempty" json:"conductivity,omitempty"`
}

// ResolveMaterial maps a material reference to one of the three material models.
// Known names win over explicit properties.
func ResolveMaterial(spec MaterialSpec) models.Material {
	name := strings.ToLower(strings.TrimSpace(spec.Name))
	switch name {
	case "copper", "cu", "metal", "pec":
		return models.PerfectConductor(name)
	case "fr4":
		return models.Dielectric(name, FR4Epsilon)
	case "air", "vacuum", "":
		if spec.Permittivity == nil && spec.Conductivity == nil {
			return models.Vacuum()
		}
	}

	if name == "" {
		name = "custom"
	}
	if spec.Conductivity != nil && *spec.Conductivity > pecConductivity {
		return models.PerfectConductor(name)
	}
	if spec.Permittivity != nil && *spec.Permittivity != 1 {
		return models.Dielectric(name, *spec.Permittivity)
	}
	m := models.Vacuum()
	m.Name = name
	return m
}
