
package catalog

import (
	"fmt"
	"slices"

	"github.com/poiesic/chassismatch/core"
)

// Version identifies the catalog release. Bump it whenever an attribute is
// added, removed or reordered.
const Version = "2024.1"

var topNames = []string{
	"dealer",
	"intended_service",
	"tag_suspension",
	"quarter_fenders",
	"rear_suspension",
	"lift_axle_location",
	"wheelbase",
	"c_i_non_steerable_pusher_info",
	"c_i_steerable_pusher_info",
	"pusher_suspension_non_steerable",
	"pusher_suspension_steerable",
	"def_tank_location",
	"battery_box_location",
	"hydraulic_tank_location",
	"fuel_tank_location1",
	"fuel_tank_location2",
	"fuel_tank_location3",
	"fuel_tank_location4",
	"frame_access_steps",
	"def_tank",
	"battery_box",
	"hydraulic_tank",
	"transmission",
	"fuel_tanks_add_replace1",
	"fuel_tanks_add_replace2",
	"fuel_tanks_add_replace3",
	"fuel_tanks_add_replace4",
	"exhaust_system",
}

var broadNames = []string{
	"unit_type",
	"sleeper",
	"auxillary_transmission",
	"plant_location",
	"chassis_year",
	"base_model",
}

var extraNames = []string{
	"schedule_date",
	"customer_name",
	"air_dryer",
	"air_system",
	"air_tank_location",
	"air_tank_options",
	"battery_disconnect_switches",
	"chain_hooks_hangers_box",
	"driveline1",
	"driveline2",
	"driveline3",
	"driveline4",
	"fifth_wheel_setting",
	"frame_access_grab_handles",
	"frame_rail_size",
	"fuel_fill_options",
	"full_insert",
	"partial_insert",
	"partial_insert_location",
	"defects",
}

// Filter selects which part of the catalog Keys returns.
type Filter int

const (
	// FilterDefault selects top and broad attributes.
	FilterDefault Filter = iota
	// FilterBroad selects only the broad tier.
	FilterBroad
	// FilterExtended selects every attribute.
	FilterExtended
)

// String returns the filter name as accepted by ParseFilter.
func (f Filter) String() string {
	switch f {
	case FilterDefault:
		return "default"
	case FilterBroad:
		return "broad"
	case FilterExtended:
		return "extended"
	default:
		return fmt.Sprintf("filter(%d)", int(f))
	}
}

// ParseFilter converts a filter name into a Filter.
func ParseFilter(s string) (Filter, error) {
	switch s {
	case "", "default":
		return FilterDefault, nil
	case "broad":
		return FilterBroad, nil
	case "extended":
		return FilterExtended, nil
	default:
		return 0, fmt.Errorf("unknown catalog filter %q", s)
	}
}

// TopKeys returns the top tier.
func TopKeys() []core.AttributeDescriptor {
	return descriptors(core.TierTop, topNames)
}

// BroadKeys returns the broad tier.
func BroadKeys() []core.AttributeDescriptor {
	return descriptors(core.TierBroad, broadNames)
}

// ExtraKeys returns the attributes that only belong to the extended catalog.
func ExtraKeys() []core.AttributeDescriptor {
	return descriptors(core.TierExtended, extraNames)
}

// DefaultKeys returns the top tier followed by the broad tier.
func DefaultKeys() []core.AttributeDescriptor {
	return slices.Concat(TopKeys(), BroadKeys())
}

// ExtendedKeys returns DefaultKeys followed by the extended tier.
func ExtendedKeys() []core.AttributeDescriptor {
	return slices.Concat(DefaultKeys(), ExtraKeys())
}

// Keys returns the attributes selected by filter. Every call returns a
// fresh slice the caller may modify.
func Keys(filter Filter) []core.AttributeDescriptor {
	switch filter {
	case FilterBroad:
		return BroadKeys()
	case FilterExtended:
		return ExtendedKeys()
	default:
		return DefaultKeys()
	}
}

// Names returns the attribute names of descs in order.
func Names(descs []core.AttributeDescriptor) []string {
	names := make([]string, len(descs))
	for i, d := range descs {
		names[i] = d.Name
	}
	return names
}

// Lookup returns the descriptor of a catalog attribute.
func Lookup(name string) (core.AttributeDescriptor, bool) {
	for _, d := range ExtendedKeys() {
		if d.Name == name {
			return d, true
		}
	}
	return core.AttributeDescriptor{}, false
}

func descriptors(tier core.Tier, names []string) []core.AttributeDescriptor {
	out := make([]core.AttributeDescriptor, len(names))
	for i, name := range names {
		out[i] = core.AttributeDescriptor{Name: name, Tier: tier}
	}
	return out
}
