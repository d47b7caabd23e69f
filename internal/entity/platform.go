package entity

// Platform names an entity kind.
type Platform string

const (
	PlatformLight        Platform = "light"
	PlatformSwitch       Platform = "switch"
	PlatformBinarySensor Platform = "binary_sensor"
)

type platformSpec struct {
	platform Platform
	types    []string
	build    func(b base) Entity
}

// platforms maps device type tags to entity constructors. A type tag belongs
// to at most one platform.
var platforms = []platformSpec{
	{
		platform: PlatformLight,
		types:    []string{"light"},
		build:    func(b base) Entity { return &Light{base: b} },
	},
	{
		platform: PlatformSwitch,
		types:    []string{"switch", "relay"},
		build:    func(b base) Entity { return &Switch{base: b} },
	},
	{
		platform: PlatformBinarySensor,
		types:    []string{"binary_sensor", "motion", "contact"},
		build:    func(b base) Entity { return &BinarySensor{base: b} },
	},
}

// Platforms lists every supported platform.
func Platforms() []Platform {
	out := make([]Platform, len(platforms))
	for i, p := range platforms {
		out[i] = p.platform
	}
	return out
}

// PlatformFor returns the platform that claims deviceType.
func PlatformFor(deviceType string) (Platform, bool) {
	if spec, ok := specFor(deviceType); ok {
		return spec.platform, true
	}
	return "", false
}

func specFor(deviceType string) (platformSpec, bool) {
	for _, p := range platforms {
		for _, t := range p.types {
			if t == deviceType {
				return p, true
			}
		}
	}
	return platformSpec{}, false
}

// New builds the entity for a device of the given type. ok is false when no
// platform claims the type.
func New(store Store, deviceID, deviceType string) (Entity, bool) {
	spec, ok := specFor(deviceType)
	if !ok {
		return nil, false
	}
	return spec.build(base{store: store, deviceID: deviceID, platform: spec.platform}), true
}
