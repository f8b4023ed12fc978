package telemetry

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"fleetboard-backend/internal/mapstate"
)

// Telemetry providers disagree on field names (and some mix Italian and
// English in the same payload). The normalizer maps every known alias
// onto the one canonical record shape used everywhere downstream, so
// nothing past this file ever touches a raw provider payload.

var (
	plateAliases    = []string{"plate", "targa", "license_plate", "licensePlate", "vehiclePlate"}
	unitIDAliases   = []string{"unit_id", "unitId", "deviceId", "device_id", "idUnita", "terminalId"}
	nicknameAliases = []string{"nickname", "name", "alias", "descrizione", "vehicleName"}
	typeAliases     = []string{"vehicle_type", "vehicleType", "tipo", "tipoVeicolo", "category"}
	modelAliases    = []string{"model", "modello", "vehicleModel"}
	latAliases      = []string{"lat", "latitude", "latitudine", "Latitude"}
	lngAliases      = []string{"lng", "lon", "long", "longitude", "longitudine", "Longitude"}
	headingAliases  = []string{"heading", "direction", "direzione", "course", "bearing"}
	speedAliases    = []string{"speed", "velocita", "velocità", "speedKmh", "speed_kmh"}
	addressAliases  = []string{"address", "indirizzo", "location", "posizione"}
	fixTimeAliases  = []string{"fix_time", "fixTime", "timestamp", "gpsTime", "dataOra", "lastUpdate"}
	ignitionAliases = []string{"ignition", "quadro", "engineOn", "engine_on", "acc"}
	fridgeAliases   = []string{"refrigerated", "frigo", "isFridge", "hasFridge"}
	doorSensAliases = []string{"door_sensor", "doorSensor", "hasDoorSensor", "sensorePorte"}
	doorOpenAliases = []string{"door_open", "doorOpen", "portaAperta", "doorState"}
	temp1Aliases    = []string{"temp1", "temperature1", "temp_channel_1", "tempChannel1", "temperatura1", "t1"}
	temp2Aliases    = []string{"temp2", "temperature2", "temp_channel_2", "tempChannel2", "temperatura2", "t2"}
)

// NormalizeRecord maps one raw provider object onto a PositionRecord.
// Records without a usable plate or coordinates are rejected.
func NormalizeRecord(raw map[string]interface{}) (mapstate.PositionRecord, error) {
	var rec mapstate.PositionRecord

	plate, _ := stringField(raw, plateAliases)
	unitID, _ := stringField(raw, unitIDAliases)
	if plate == "" && unitID == "" {
		return rec, fmt.Errorf("record has neither plate nor unit id")
	}

	lat, okLat := floatField(raw, latAliases)
	lng, okLng := floatField(raw, lngAliases)
	if !okLat || !okLng {
		return rec, fmt.Errorf("record for %q has no coordinates", plate)
	}

	rec.Plate = plate
	rec.UnitID = unitID
	rec.Nickname, _ = stringField(raw, nicknameAliases)
	rec.VehicleType, _ = stringField(raw, typeAliases)
	rec.Model, _ = stringField(raw, modelAliases)
	rec.Latitude = lat
	rec.Longitude = lng

	if h, ok := floatField(raw, headingAliases); ok {
		rec.Heading = h
	}
	if s, ok := floatField(raw, speedAliases); ok {
		rec.Speed = s
	}
	rec.Address, _ = stringField(raw, addressAliases)
	rec.FixTime = timeField(raw, fixTimeAliases)
	rec.Ignition, _ = boolField(raw, ignitionAliases)
	rec.Refrigerated, _ = boolField(raw, fridgeAliases)
	rec.DoorSensor, _ = boolField(raw, doorSensAliases)
	rec.DoorOpen, _ = boolField(raw, doorOpenAliases)

	if t, ok := floatField(raw, temp1Aliases); ok {
		rec.TempChannel1 = &t
	}
	if t, ok := floatField(raw, temp2Aliases); ok {
		rec.TempChannel2 = &t
	}

	return rec, nil
}

// NormalizeBatch parses a raw provider payload into canonical records.
// The payload may be a bare array or an object wrapping the array under
// a well-known key. Unparseable records are skipped, not fatal.
func NormalizeBatch(payload []byte) ([]mapstate.PositionRecord, error) {
	rawRecords, err := extractRecords(payload)
	if err != nil {
		return nil, err
	}

	records := make([]mapstate.PositionRecord, 0, len(rawRecords))
	for _, raw := range rawRecords {
		rec, err := NormalizeRecord(raw)
		if err != nil {
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

func extractRecords(payload []byte) ([]map[string]interface{}, error) {
	var asArray []map[string]interface{}
	if err := json.Unmarshal(payload, &asArray); err == nil {
		return asArray, nil
	}

	var asObject map[string]json.RawMessage
	if err := json.Unmarshal(payload, &asObject); err != nil {
		return nil, fmt.Errorf("payload is neither array nor object: %w", err)
	}

	for _, key := range []string{"data", "vehicles", "positions", "items", "veicoli", "results"} {
		if inner, ok := asObject[key]; ok {
			if err := json.Unmarshal(inner, &asArray); err == nil {
				return asArray, nil
			}
		}
	}

	return nil, fmt.Errorf("payload object has no recognized record array")
}

func stringField(raw map[string]interface{}, aliases []string) (string, bool) {
	for _, key := range aliases {
		v, ok := raw[key]
		if !ok || v == nil {
			continue
		}
		switch s := v.(type) {
		case string:
			trimmed := strings.TrimSpace(s)
			if trimmed != "" {
				return trimmed, true
			}
		case float64:
			return strconv.FormatFloat(s, 'f', -1, 64), true
		}
	}
	return "", false
}

func floatField(raw map[string]interface{}, aliases []string) (float64, bool) {
	for _, key := range aliases {
		v, ok := raw[key]
		if !ok || v == nil {
			continue
		}
		switch n := v.(type) {
		case float64:
			return n, true
		case string:
			// Some providers ship numbers as strings, with comma decimals
			cleaned := strings.ReplaceAll(strings.TrimSpace(n), ",", ".")
			if f, err := strconv.ParseFloat(cleaned, 64); err == nil {
				return f, true
			}
		}
	}
	return 0, false
}

func boolField(raw map[string]interface{}, aliases []string) (bool, bool) {
	for _, key := range aliases {
		v, ok := raw[key]
		if !ok || v == nil {
			continue
		}
		switch b := v.(type) {
		case bool:
			return b, true
		case float64:
			return b != 0, true
		case string:
			switch strings.ToLower(strings.TrimSpace(b)) {
			case "true", "1", "on", "yes", "open", "aperta":
				return true, true
			case "false", "0", "off", "no", "closed", "chiusa":
				return false, true
			}
		}
	}
	return false, false
}

// timeField resolves a fix timestamp from epoch seconds, epoch millis
// or a handful of string layouts. The zero time means unknown.
func timeField(raw map[string]interface{}, aliases []string) time.Time {
	for _, key := range aliases {
		v, ok := raw[key]
		if !ok || v == nil {
			continue
		}
		switch t := v.(type) {
		case float64:
			return epochToTime(int64(t))
		case string:
			s := strings.TrimSpace(t)
			if n, err := strconv.ParseInt(s, 10, 64); err == nil {
				return epochToTime(n)
			}
			layouts := []string{
				time.RFC3339,
				"2006-01-02 15:04:05",
				"02/01/2006 15:04:05",
			}
			for _, layout := range layouts {
				if parsed, err := time.Parse(layout, s); err == nil {
					return parsed
				}
			}
		}
	}
	return time.Time{}
}

func epochToTime(n int64) time.Time {
	if n <= 0 {
		return time.Time{}
	}
	// Providers use both epoch seconds and epoch millis
	if n > 1e12 {
		return time.UnixMilli(n)
	}
	return time.Unix(n, 0)
}
