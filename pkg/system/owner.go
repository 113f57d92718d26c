package system

import (
	"github.com/denisbrodbeck/machineid"
	"github.com/golang/glog"
)

const appID = "robowdt"

// MachineOwner derives an owner id from the machine id.
// The raw machine id is never exposed.
func MachineOwner() string {
	id, err := machineid.ProtectedID(appID)
	if err != nil {
		glog.Warningf("machine id unavailable: %v", err)
		return appID
	}
	if len(id) > 12 {
		id = id[:12]
	}
	return id
}
