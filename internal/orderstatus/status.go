// Package orderstatus follows the customer's last order: the status modal
// state machine, its refresh and call-to-action timers, the background
// badge checker and the view model the page renders.
package orderstatus

import "github.com/danielandresolateseguel/server1/internal/enum"

// StatusInfo is how a status badge is rendered.
type StatusInfo struct {
	Label string `json:"label"`
	Class string `json:"class"`
	Icon  string `json:"icon"`
}

var statusTable = map[string]StatusInfo{
	enum.StatusPending:   {Label: "Pendiente", Class: "pendiente", Icon: "fa-clock"},
	enum.StatusPreparing: {Label: "En preparación", Class: "preparacion", Icon: "fa-fire"},
	enum.StatusReady:     {Label: "Listo para retirar", Class: "listo", Icon: "fa-shopping-bag"},
	enum.StatusOnTheWay:  {Label: "En camino", Class: "en_camino", Icon: "fa-motorcycle"},
	enum.StatusDelivered: {Label: "Entregado", Class: "entregado", Icon: "fa-smile-beam"},
	enum.StatusCancelled: {Label: "Cancelado", Class: "cancelado", Icon: "fa-times-circle"},
}

// Describe returns the badge for status. Unknown statuses are shown raw.
func Describe(status string) StatusInfo {
	if info, ok := statusTable[status]; ok {
		return info
	}
	return StatusInfo{Label: status, Class: "default", Icon: "fa-info-circle"}
}

// Step is one stage of the stepper.
type Step struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Icon  string `json:"icon"`
}

var (
	pickupSteps = []Step{
		{Key: enum.StatusPending, Label: "Recibido", Icon: "fa-clipboard-check"},
		{Key: enum.StatusPreparing, Label: "Cocina", Icon: "fa-fire"},
		{Key: enum.StatusReady, Label: "Listo", Icon: "fa-check"},
		{Key: enum.StatusDelivered, Label: "Entregado", Icon: "fa-smile"},
	}
	deliverySteps = []Step{
		{Key: enum.StatusPending, Label: "Recibido", Icon: "fa-clipboard-check"},
		{Key: enum.StatusPreparing, Label: "Cocina", Icon: "fa-fire"},
		{Key: enum.StatusReady, Label: "Listo", Icon: "fa-check"},
		{Key: enum.StatusOnTheWay, Label: "En camino", Icon: "fa-motorcycle"},
		{Key: enum.StatusDelivered, Label: "Entregado", Icon: "fa-smile"},
	}
)

// CancelledStep is the step index of a cancelled order.
const CancelledStep = -1

// IsDeliveryFlow reports whether the order follows the five-step delivery
// stepper. An order already on its way is treated as delivery whatever
// its type says.
func IsDeliveryFlow(status, orderType string) bool {
	return orderType == enum.OrderTypeDelivery || status == enum.StatusOnTheWay
}

// StepsFor returns the stepper stages for an order.
func StepsFor(status, orderType string) []Step {
	if IsDeliveryFlow(status, orderType) {
		return deliverySteps
	}
	return pickupSteps
}

// StepIndex maps status to a position in StepsFor. Unknown statuses sit
// on the first step; cancelled orders are CancelledStep.
func StepIndex(status, orderType string) int {
	delivery := IsDeliveryFlow(status, orderType)
	switch status {
	case enum.StatusPreparing:
		return 1
	case enum.StatusReady:
		return 2
	case enum.StatusOnTheWay:
		// IsDeliveryFlow is always true here.
		return 3
	case enum.StatusDelivered:
		if delivery {
			return 4
		}
		return 3
	case enum.StatusCancelled:
		return CancelledStep
	}
	return 0
}

// StepView is a rendered stepper stage.
type StepView struct {
	Step
	Completed bool `json:"completed,omitempty"`
	Active    bool `json:"active,omitempty"`
}

// Stepper renders the stages with their state. Completed stages show a
// check icon. A cancelled order has no stages.
func Stepper(status, orderType string) []StepView {
	idx := StepIndex(status, orderType)
	if idx == CancelledStep {
		return nil
	}
	steps := StepsFor(status, orderType)
	out := make([]StepView, len(steps))
	for i, s := range steps {
		v := StepView{Step: s}
		switch {
		case i < idx:
			v.Completed = true
			v.Icon = "fa-check"
		case i == idx:
			v.Active = true
		}
		out[i] = v
	}
	return out
}
