package comp

import "github.com/google/uuid"

// Driver UUIDs. The sink's is derived from its name.
var (
	ToneUUID   = uuid.MustParse("04e3f894-2c5c-4f2e-8dc1-694eeaab53fa")
	VolumeUUID = uuid.MustParse("b77e677e-5ff4-4188-af14-fba8bdbf8682")
	MixerUUID  = uuid.MustParse("bc06c037-12aa-417c-9a97-89282e321a76")
	CopierUUID = uuid.MustParse("9ba00c83-ca12-4a83-943c-1fa2e82f9dda")
	DAIUUID    = uuid.MustParse("c2b00d27-ffbc-4150-a51a-245c79c5e54b")
	SinkUUID   = uuid.NewSHA1(uuid.NameSpaceOID, []byte("dspcore.comp.sink"))
)

// Builtins returns the drivers shipped with the runtime.
func Builtins() []Driver {
	return []Driver{
		NewDriver(ToneUUID, "tone", newTone),
		NewDriver(SinkUUID, "sink", newSink),
		NewDriver(VolumeUUID, "volume", newVolume),
		NewDriver(MixerUUID, "mixer", newMixer),
		NewDriver(CopierUUID, "copier", newCopier),
		NewDriver(DAIUUID, "dai", newDAI),
	}
}

// NewBuiltinRegistry returns a registry holding Builtins.
func NewBuiltinRegistry() *Registry {
	r := NewRegistry()
	for _, drv := range Builtins() {
		// names and UUIDs above are unique
		_ = r.Register(drv)
	}
	return r
}
