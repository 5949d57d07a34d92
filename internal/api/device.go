package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/clix-so/clix-go/pkg/types"
)

// DeviceAPI registers and updates device identity with the Clix backend.
type DeviceAPI struct {
	client *Client
	logger types.Logger
}

// NewDeviceAPI creates a DeviceAPI over the shared client.
func NewDeviceAPI(client *Client, logger types.Logger) *DeviceAPI {
	return &DeviceAPI{client: client, logger: logger}
}

// UpsertDevice creates or updates the device registration.
func (a *DeviceAPI) UpsertDevice(ctx context.Context, device types.Device) error {
	return a.postJSON(ctx, "/devices", map[string]any{
		"devices": []types.Device{device},
	})
}

// UpdatePushToken reports a new push token for the device.
func (a *DeviceAPI) UpdatePushToken(ctx context.Context, deviceID, token, tokenType string) error {
	return a.postJSON(ctx, fmt.Sprintf("/devices/%s/token", url.PathEscape(deviceID)), map[string]any{
		"push_token":      token,
		"push_token_type": tokenType,
	})
}

// UpdatePushPermission reports the push permission state for the device.
func (a *DeviceAPI) UpdatePushPermission(ctx context.Context, deviceID string, granted bool) error {
	return a.postJSON(ctx, fmt.Sprintf("/devices/%s/permission", url.PathEscape(deviceID)), map[string]any{
		"is_push_permission_granted": granted,
	})
}

// SetProjectUserID associates the device with an integrator user id.
func (a *DeviceAPI) SetProjectUserID(ctx context.Context, deviceID, projectUserID string) error {
	return a.postJSON(ctx, fmt.Sprintf("/devices/%s/user/project-user-id", url.PathEscape(deviceID)), map[string]any{
		"project_user_id": projectUserID,
	})
}

// RemoveProjectUserID detaches the integrator user id from the device.
func (a *DeviceAPI) RemoveProjectUserID(ctx context.Context, deviceID string) error {
	return a.delete(ctx, fmt.Sprintf("/devices/%s/user/project-user-id", url.PathEscape(deviceID)))
}

// UpsertUserProperties sets user properties on the device.
func (a *DeviceAPI) UpsertUserProperties(ctx context.Context, deviceID string, properties []types.UserProperty) error {
	return a.postJSON(ctx, fmt.Sprintf("/devices/%s/user/properties", url.PathEscape(deviceID)), map[string]any{
		"properties": properties,
	})
}

// RemoveUserProperties removes the named user properties from the device.
func (a *DeviceAPI) RemoveUserProperties(ctx context.Context, deviceID string, names []string) error {
	body, err := json.Marshal(map[string]any{"property_names": names})
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalUnexpected, "failed to encode request", err)
	}

	req, err := a.client.newRequest(ctx, http.MethodDelete,
		fmt.Sprintf("/devices/%s/user/properties", url.PathEscape(deviceID)), body)
	if err != nil {
		return err
	}
	return a.client.send(req, body)
}

func (a *DeviceAPI) postJSON(ctx context.Context, path string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalUnexpected, "failed to encode request", err)
	}

	req, err := a.client.newRequest(ctx, http.MethodPost, path, body)
	if err != nil {
		return err
	}
	return a.client.send(req, body)
}

func (a *DeviceAPI) delete(ctx context.Context, path string) error {
	req, err := a.client.newRequest(ctx, http.MethodDelete, path, nil)
	if err != nil {
		return err
	}
	return a.client.send(req, nil)
}
