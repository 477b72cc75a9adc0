package driver

// Feature node names. They follow the GenICam standard feature naming so a
// vendor binding can pass them through unchanged.
const (
	FeatureAcquisitionFrameRate     = "AcquisitionFrameRate"
	FeatureAcquisitionFrameRateOn   = "AcquisitionFrameRateEnable"
	FeatureExposureTime             = "ExposureTime"
	FeatureBinningHorizontal        = "BinningHorizontal"
	FeatureBinningVertical          = "BinningVertical"
	FeatureWidth                    = "Width"
	FeatureHeight                   = "Height"
	FeatureOffsetX                  = "OffsetX"
	FeatureOffsetY                  = "OffsetY"
	FeatureSensorWidth              = "SensorWidth"
	FeatureSensorHeight             = "SensorHeight"
	FeatureStreamBufferHandlingMode = "StreamBufferHandlingMode"
	FeaturePixelFormat              = "PixelFormat"
	FeatureTriggerMode              = "TriggerMode"
	FeatureTriggerSource            = "TriggerSource"
	FeatureTriggerActivation        = "TriggerActivation"
	FeatureLineSelector             = "LineSelector"
	FeatureLineSource               = "LineSource"
)

// Enumeration values of the trigger and line features.
const (
	TriggerOn  = "On"
	TriggerOff = "Off"

	TriggerSourceSoftware = "Software"
	TriggerSourceLine3    = "Line3"

	ActivationRisingEdge = "RisingEdge"
	ActivationAnyEdge    = "AnyEdge"

	LineSourceOff           = "Off"
	LineSourceCounterActive = "Counter0Active"
)
