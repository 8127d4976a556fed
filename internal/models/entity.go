package models

// Entity names a synchronized entity type. The values match the table names
// used by both stores.
type Entity string

const (
	EntityStream           Entity = "video_streams"
	EntityDescriptor       Entity = "face_descriptors"
	EntityStreamLink       Entity = "link_descriptor_vstream"
	EntitySpecialGroup     Entity = "special_groups"
	EntitySpecialGroupLink Entity = "link_descriptor_sgroup"
	EntityFaceLog          Entity = "log_faces"
)

func (e Entity) String() string { return string(e) }

// Link is a many-to-many row between a stream or special group (Owner) and a
// face descriptor.
type Link struct {
	Owner      int64 `json:"owner"`
	Descriptor int64 `json:"descriptor"`
}

// ConfigTable names a per-tenant configuration document table.
type ConfigTable string

const (
	ConfigCommon        ConfigTable = "common_config"
	ConfigDefaultStream ConfigTable = "default_vstream_config"
)
