package model

// KeyKind discriminates identity key variants. A kind is never reused
// across provider families.
type KeyKind string

const (
	// KeyHost addresses a VM by host name within one infrastructure
	// mapping (plain EC2, ASG members, physical hosts).
	KeyHost KeyKind = "host"
	// KeyContainer addresses a container by pod name or ECS task ARN.
	KeyContainer KeyKind = "container"
	// KeyPCF addresses a PCF application instance by its instance id.
	KeyPCF KeyKind = "pcf"
)

// InstanceKey is the sole join key between provider-observed units and
// stored records. Two instances within one infrastructure mapping never
// share a key value.
type InstanceKey struct {
	Kind  KeyKind `json:"kind"`
	Value string  `json:"value"`
}

// HostKey builds the identity key for a VM instance.
func HostKey(hostName string) InstanceKey {
	return InstanceKey{Kind: KeyHost, Value: hostName}
}

// ContainerKey builds the identity key for a pod or ECS task.
func ContainerKey(containerID string) InstanceKey {
	return InstanceKey{Kind: KeyContainer, Value: containerID}
}

// PCFInstanceKey builds the identity key for a PCF application instance.
// PCF reports instances as numbered indexes of an application, so the id
// is the application GUID combined with the index.
func PCFInstanceKey(appGUID, index string) InstanceKey {
	return InstanceKey{Kind: KeyPCF, Value: appGUID + ":" + index}
}
