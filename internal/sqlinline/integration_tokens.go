package sqlinline

const QSelectIntegrationToken = `--sql 2fb73f19-0c5d-4b9a-bc54-f32c914628e6
select token
from integration_tokens
where provider = $1::text
  and token <> ''
limit 1;
`

const QUpsertIntegrationToken = `--sql 515390e2-aec2-4a26-a025-baf515867c43
insert into integration_tokens (id, provider, token, properties, created_at, updated_at)
values (gen_random_uuid()::text, $1::text, $2::text, coalesce($3::jsonb, '{}'::jsonb), now(), now())
on conflict (provider) do update set
    token = excluded.token,
    properties = excluded.properties,
    updated_at = now();
`
