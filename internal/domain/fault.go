package domain

import "errors"

// Fault names a root cause identified by the decision tree.
type Fault string

const (
	FaultNoAddress         Fault = "NO_ADDRESS"
	FaultFirewallUp        Fault = "FIREWALL_UP"
	FaultFirewallDown      Fault = "FIREWALL_DOWN"
	FaultDNSFailure        Fault = "DNS_FAILURE"
	FaultFirewallUpISP     Fault = "FIREWALL_UP_ISP"
	FaultFirewallDownFinal Fault = "FIREWALL_DOWN_FINAL"
)

// FaultError is returned by a run that ended in a diagnosed fault. The
// same message was already emitted as the run's terminal event.
type FaultError struct {
	Fault   Fault
	Message string
}

func (e *FaultError) Error() string {
	if e == nil {
		return ""
	}
	return string(e.Fault) + ": " + e.Message
}

// AsFault extracts the diagnosed fault from err, if there is one.
func AsFault(err error) (Fault, bool) {
	var fe *FaultError
	if errors.As(err, &fe) {
		return fe.Fault, true
	}
	return "", false
}
