package apu

import "strings"

const UnknownModuleName = "UNKNOWN MODULE NAME"

// module code prefix to the module's name, the export only carries codes
var DefaultModuleNames = map[string]string{
	"AAQS038": "MATHEMATICS AND STATISTICS FOR COMPUTING",
	"ABUS007": "ACADEMIC RESEARCH SKILLS",
	"AICT023": "COMPUTER ARCHITECTURE",
	"MPU2132": "BAHASA MELAYU KOMUNIKASI 1",
	"AICT016": "DIGITAL THINKING AND INNOVATION",
	"MPU2112": "APPRECIATION OF ETHICS AND CIVILIZATIONS",
}

type ModuleNames map[string]string

// Lookup resolves full intake codes e.i. AICT023-4-1-CA-L-1 by their prefix
func (m ModuleNames) Lookup(moduleCode string) string {
	prefix := modulePrefix(moduleCode)
	if name, ok := m[prefix]; ok {
		return name
	}
	return UnknownModuleName
}

// leading run of upper case letters and digits
func modulePrefix(moduleCode string) string {
	end := 0
	for end < len(moduleCode) {
		c := moduleCode[end]
		if (c < 'A' || c > 'Z') && (c < '0' || c > '9') {
			break
		}
		end++
	}
	return moduleCode[:end]
}

// Merge gives a copy with extra taking precedence
func (m ModuleNames) Merge(extra map[string]string) ModuleNames {
	merged := make(ModuleNames, len(m)+len(extra))
	for k, v := range m {
		merged[k] = v
	}
	for k, v := range extra {
		merged[strings.ToUpper(strings.TrimSpace(k))] = v
	}
	return merged
}
