package models

// SParameterPoint represents the scattering parameters at one frequency bin
type SParameterPoint struct {
	FrequencyGHz float64 `json:"frequency_ghz" doc:"Frequency in GHz"`
	S11dB        float64 `json:"s11_db" doc:"Reflection coefficient in dB"`
	S21dB        float64 `json:"s21_db" doc:"Transmission coefficient in dB"`
}
