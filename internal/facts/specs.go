package facts

var defaultToolSpecs = map[string]Spec{
	"system.memory_usage": {Domain: "memory", Fields: []FieldSpec{
		{Key: "ram_percent_used", Path: "ram.percent_used"},
		{Key: "ram_used_gb", Path: "ram.used_gb"},
		{Key: "ram_total_gb", Path: "ram.total_gb"},
	}},
	"system.cpu_usage": {Domain: "cpu", Fields: []FieldSpec{
		{Key: "cpu_percent_used", Path: "cpu.percent_used"},
		{Key: "cpu_cores", Path: "cpu.cores"},
	}},
	"system.disk_usage": {Domain: "disk", Fields: []FieldSpec{
		{Key: "disk_path", Path: "disk.path"},
		{Key: "disk_percent_used", Path: "disk.percent_used"},
		{Key: "disk_free_gb", Path: "disk.free_gb"},
		{Key: "disk_total_gb", Path: "disk.total_gb"},
	}},
	"system.shutdown": {Domain: "power", Fields: []FieldSpec{
		{Key: "shutdown", Path: "shutdown"},
	}},
	"files.list_dir": {Domain: "files", Fields: []FieldSpec{
		{Key: "path", Path: "path"},
		{Key: "entry_count", Path: "count"},
		{Key: "dir_count", Path: "dirs"},
		{Key: "file_count", Path: "files"},
		{Key: "entries", Path: "entries"},
	}},
	"files.empty_trash": {Domain: "trash", Fields: []FieldSpec{
		{Key: "trash_removed", Path: "removed"},
	}},
	"app.open": {Domain: "app", Fields: []FieldSpec{
		{Key: "app", Path: "app"},
	}},
	"input.type_text": {Domain: "input", Fields: []FieldSpec{
		{Key: "characters_typed", Path: "characters"},
	}},
	"audio.set_volume": {Domain: "volume", Fields: []FieldSpec{
		{Key: "volume_level", Path: "volume.level"},
	}},
}

// Domain specs cover tools that have no spec of their own. Fields missing from a payload
// are skipped.
var defaultDomainSpecs = map[string]Spec{
	"system": {Fields: []FieldSpec{
		{Key: "ram_percent_used", Path: "ram.percent_used"},
		{Key: "cpu_percent_used", Path: "cpu.percent_used"},
		{Key: "disk_percent_used", Path: "disk.percent_used"},
		{Key: "battery_percent", Path: "battery.percent"},
		{Key: "battery_charging", Path: "battery.charging"},
	}},
	"audio": {Fields: []FieldSpec{
		{Key: "volume_level", Path: "volume.level"},
		{Key: "volume_muted", Path: "volume.muted"},
	}},
	"files": {Fields: []FieldSpec{
		{Key: "path", Path: "path"},
		{Key: "entry_count", Path: "count"},
	}},
}
