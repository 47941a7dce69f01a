package models

// ServiceRequest registers a DNS-SD service at runtime.
type ServiceRequest struct {
	Name         string   `json:"name" binding:"required"`
	InstanceName string   `json:"instance_name" binding:"required"`
	Type         string   `json:"type" binding:"required"`
	Port         uint16   `json:"port" binding:"required"`
	Priority     uint16   `json:"priority"`
	Weight       uint16   `json:"weight"`
	TXT          []string `json:"txt"`
}

// ServiceResponse describes one registered service.
type ServiceResponse struct {
	Name         string   `json:"name"`
	InstanceName string   `json:"instance_name"`
	Type         string   `json:"type"`
	Port         uint16   `json:"port"`
	Priority     uint16   `json:"priority"`
	Weight       uint16   `json:"weight"`
	TXT          []string `json:"txt,omitempty"`
	Instance     string   `json:"instance"`
}

// ServiceListResponse is the /services payload.
type ServiceListResponse struct {
	Services []ServiceResponse `json:"services"`
}

// ZoneDumpResponse carries the textual zone dump.
type ZoneDumpResponse struct {
	Records []string `json:"records"`
}

// ZoneVerifyResponse reports how many records the zone held when
// verification was requested; only the established ones are re-probed.
type ZoneVerifyResponse struct {
	Records int `json:"records"`
}

// HostnameResponse reports the advertised hostname.
type HostnameResponse struct {
	Hostname string `json:"hostname"`
}
