//go:build windows && webgpu

package webgpu

// workgroupSize is the number of invocations per workgroup. Every shader
// runs one invocation per output element.
const workgroupSize = 256

// maxWorkgroups is the WebGPU default limit on workgroups per dispatch
// dimension. Dispatches are one-dimensional.
const maxWorkgroups = 65535

// convParams is shared by the convolution shaders. Field order matches
// Conv2D.params.
const convParams = `
struct Params {
    batch: u32,
    in_channels: u32,
    height: u32,
    width: u32,
    kernel: u32,
    out_channels: u32,
}
`

// conv2dForwardShader computes y = w * x + b, one invocation per output pixel.
const conv2dForwardShader = convParams + `
@group(0) @binding(0) var<storage, read> x: array<f32>;
@group(0) @binding(1) var<storage, read> w: array<f32>;
@group(0) @binding(2) var<storage, read> bias: array<f32>;
@group(0) @binding(3) var<storage, read_write> y: array<f32>;
@group(0) @binding(4) var<uniform> params: Params;

@compute @workgroup_size(256)
fn main(@builtin(global_invocation_id) global_id: vec3<u32>) {
    let k = params.kernel;
    let oh = params.height - k + 1u;
    let ow = params.width - k + 1u;
    let idx = global_id.x;
    if (idx >= params.batch * params.out_channels * oh * ow) {
        return;
    }

    let j = idx % ow;
    let i = (idx / ow) % oh;
    let oc = (idx / (ow * oh)) % params.out_channels;
    let s = idx / (ow * oh * params.out_channels);

    var sum: f32 = 0.0;
    for (var ic: u32 = 0u; ic < params.in_channels; ic = ic + 1u) {
        for (var di: u32 = 0u; di < k; di = di + 1u) {
            for (var dj: u32 = 0u; dj < k; dj = dj + 1u) {
                let w_idx = ((oc * params.in_channels + ic) * k + di) * k + dj;
                let x_idx = ((s * params.in_channels + ic) * params.height + i + di) * params.width + j + dj;
                sum = sum + w[w_idx] * x[x_idx];
            }
        }
    }
    y[idx] = sum + bias[oc];
}
`

// conv2dWeightGradShader computes gw, one invocation per weight.
const conv2dWeightGradShader = convParams + `
@group(0) @binding(0) var<storage, read> gy: array<f32>;
@group(0) @binding(1) var<storage, read> x: array<f32>;
@group(0) @binding(2) var<storage, read_write> gw: array<f32>;
@group(0) @binding(3) var<uniform> params: Params;

@compute @workgroup_size(256)
fn main(@builtin(global_invocation_id) global_id: vec3<u32>) {
    let k = params.kernel;
    let oh = params.height - k + 1u;
    let ow = params.width - k + 1u;
    let idx = global_id.x;
    if (idx >= params.out_channels * params.in_channels * k * k) {
        return;
    }

    let dj = idx % k;
    let di = (idx / k) % k;
    let ic = (idx / (k * k)) % params.in_channels;
    let oc = idx / (k * k * params.in_channels);

    var sum: f32 = 0.0;
    for (var s: u32 = 0u; s < params.batch; s = s + 1u) {
        for (var i: u32 = 0u; i < oh; i = i + 1u) {
            for (var j: u32 = 0u; j < ow; j = j + 1u) {
                let gy_idx = ((s * params.out_channels + oc) * oh + i) * ow + j;
                let x_idx = ((s * params.in_channels + ic) * params.height + i + di) * params.width + j + dj;
                sum = sum + gy[gy_idx] * x[x_idx];
            }
        }
    }
    gw[idx] = sum;
}
`

// conv2dBiasGradShader computes gb, one invocation per output channel.
const conv2dBiasGradShader = convParams + `
@group(0) @binding(0) var<storage, read> gy: array<f32>;
@group(0) @binding(1) var<storage, read_write> gb: array<f32>;
@group(0) @binding(2) var<uniform> params: Params;

@compute @workgroup_size(256)
fn main(@builtin(global_invocation_id) global_id: vec3<u32>) {
    let k = params.kernel;
    let plane = (params.height - k + 1u) * (params.width - k + 1u);
    let oc = global_id.x;
    if (oc >= params.out_channels) {
        return;
    }

    var sum: f32 = 0.0;
    for (var s: u32 = 0u; s < params.batch; s = s + 1u) {
        let base = (s * params.out_channels + oc) * plane;
        for (var p: u32 = 0u; p < plane; p = p + 1u) {
            sum = sum + gy[base + p];
        }
    }
    gb[oc] = sum;
}
`

// conv2dInputGradShader computes gx, one invocation per input pixel. Terms
// whose shifted position falls outside the output are skipped.
const conv2dInputGradShader = convParams + `
@group(0) @binding(0) var<storage, read> gy: array<f32>;
@group(0) @binding(1) var<storage, read> w: array<f32>;
@group(0) @binding(2) var<storage, read_write> gx: array<f32>;
@group(0) @binding(3) var<uniform> params: Params;

@compute @workgroup_size(256)
fn main(@builtin(global_invocation_id) global_id: vec3<u32>) {
    let k = params.kernel;
    let oh = params.height - k + 1u;
    let ow = params.width - k + 1u;
    let idx = global_id.x;
    if (idx >= params.batch * params.in_channels * params.height * params.width) {
        return;
    }

    let j = idx % params.width;
    let i = (idx / params.width) % params.height;
    let ic = (idx / (params.width * params.height)) % params.in_channels;
    let s = idx / (params.width * params.height * params.in_channels);

    var sum: f32 = 0.0;
    for (var oc: u32 = 0u; oc < params.out_channels; oc = oc + 1u) {
        for (var di: u32 = 0u; di < k; di = di + 1u) {
            if (di > i || i - di >= oh) {
                continue;
            }
            for (var dj: u32 = 0u; dj < k; dj = dj + 1u) {
                if (dj > j || j - dj >= ow) {
                    continue;
                }
                let gy_idx = ((s * params.out_channels + oc) * oh + i - di) * ow + j - dj;
                let w_idx = ((oc * params.in_channels + ic) * k + di) * k + dj;
                sum = sum + gy[gy_idx] * w[w_idx];
            }
        }
    }
    gx[idx] = sum;
}
`

// linearParams is shared by the dense shaders. Field order matches
// Linear.params.
const linearParams = `
struct Params {
    batch: u32,
    features: u32,
    out_features: u32,
}
`

// linearForwardShader computes y = x w + b, one invocation per output.
const linearForwardShader = linearParams + `
@group(0) @binding(0) var<storage, read> x: array<f32>;
@group(0) @binding(1) var<storage, read> w: array<f32>;
@group(0) @binding(2) var<storage, read> bias: array<f32>;
@group(0) @binding(3) var<storage, read_write> y: array<f32>;
@group(0) @binding(4) var<uniform> params: Params;

@compute @workgroup_size(256)
fn main(@builtin(global_invocation_id) global_id: vec3<u32>) {
    let idx = global_id.x;
    if (idx >= params.batch * params.out_features) {
        return;
    }
    let n = idx % params.out_features;
    let s = idx / params.out_features;

    var sum: f32 = 0.0;
    for (var k: u32 = 0u; k < params.features; k = k + 1u) {
        sum = sum + x[s * params.features + k] * w[k * params.out_features + n];
    }
    y[idx] = sum + bias[n];
}
`

// linearWeightGradShader computes gw, one invocation per weight.
const linearWeightGradShader = linearParams + `
@group(0) @binding(0) var<storage, read> gy: array<f32>;
@group(0) @binding(1) var<storage, read> x: array<f32>;
@group(0) @binding(2) var<storage, read_write> gw: array<f32>;
@group(0) @binding(3) var<uniform> params: Params;

@compute @workgroup_size(256)
fn main(@builtin(global_invocation_id) global_id: vec3<u32>) {
    let idx = global_id.x;
    if (idx >= params.features * params.out_features) {
        return;
    }
    let n = idx % params.out_features;
    let k = idx / params.out_features;

    var sum: f32 = 0.0;
    for (var s: u32 = 0u; s < params.batch; s = s + 1u) {
        sum = sum + x[s * params.features + k] * gy[s * params.out_features + n];
    }
    gw[idx] = sum;
}
`

// linearBiasGradShader computes gb, one invocation per output.
const linearBiasGradShader = linearParams + `
@group(0) @binding(0) var<storage, read> gy: array<f32>;
@group(0) @binding(1) var<storage, read_write> gb: array<f32>;
@group(0) @binding(2) var<uniform> params: Params;

@compute @workgroup_size(256)
fn main(@builtin(global_invocation_id) global_id: vec3<u32>) {
    let n = global_id.x;
    if (n >= params.out_features) {
        return;
    }
    var sum: f32 = 0.0;
    for (var s: u32 = 0u; s < params.batch; s = s + 1u) {
        sum = sum + gy[s * params.out_features + n];
    }
    gb[n] = sum;
}
`

// linearInputGradShader computes gx, one invocation per input feature.
const linearInputGradShader = linearParams + `
@group(0) @binding(0) var<storage, read> gy: array<f32>;
@group(0) @binding(1) var<storage, read> w: array<f32>;
@group(0) @binding(2) var<storage, read_write> gx: array<f32>;
@group(0) @binding(3) var<uniform> params: Params;

@compute @workgroup_size(256)
fn main(@builtin(global_invocation_id) global_id: vec3<u32>) {
    let idx = global_id.x;
    if (idx >= params.batch * params.features) {
        return;
    }
    let k = idx % params.features;
    let s = idx / params.features;

    var sum: f32 = 0.0;
    for (var n: u32 = 0u; n < params.out_features; n = n + 1u) {
        sum = sum + gy[s * params.out_features + n] * w[k * params.out_features + n];
    }
    gx[idx] = sum;
}
`
